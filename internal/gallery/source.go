package gallery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// ReferenceSource yields the labeled reference images used to build a gallery.
type ReferenceSource interface {
	References(ctx context.Context) ([]Reference, error)
}

// DirSource reads one reference image per person from a directory.
// The identity is the normalized file name without extension.
type DirSource struct {
	Dir string
}

// References lists, decodes and labels every image in the directory, sorted by file name.
// An undecodable image fails with an *EnrollmentError naming the file.
func (s DirSource) References(ctx context.Context) ([]Reference, error) {
	names, err := s.imageNames()
	if err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.Dir, name)
		identity := facematch.IdentityFromFilename(name)
		img, err := embedding.DecodeFile(path)
		if err != nil {
			return nil, &EnrollmentError{Identity: identity, Path: path, Err: err}
		}
		refs = append(refs, Reference{Identity: identity, Path: path, Image: img})
	}

	return refs, nil
}

// Identities returns the identity of every reference image without decoding it.
func (s DirSource) Identities() ([]string, error) {
	names, err := s.imageNames()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = facematch.IdentityFromFilename(name)
	}
	return ids, nil
}

func (s DirSource) imageNames() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
