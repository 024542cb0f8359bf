package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedding"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// DirSource replays the image files of a directory in file name order.
type DirSource struct {
	dir      string
	files    []string
	pos      int
	interval time.Duration
	last     time.Time
}

// NewDirSource lists the frames in dir. Interval paces playback (0 = as fast as possible).
func NewDirSource(dir string, interval time.Duration) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &AcquisitionError{Source: dir, Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return &DirSource{dir: dir, files: files, interval: interval}, nil
}

// Len returns the number of frames in the directory.
func (s *DirSource) Len() int {
	return len(s.files)
}

// Next decodes the next file. A file that fails to decode yields ErrBadFrame.
func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if err := pace(ctx, s.last, s.interval); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, ErrEndOfStream
	}

	path := s.files[s.pos]
	s.pos++
	s.last = time.Now()

	img, err := embedding.DecodeFile(path)
	if err != nil {
		return nil, badFrame(fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	return img, nil
}

func (s *DirSource) Close() error {
	return nil
}
