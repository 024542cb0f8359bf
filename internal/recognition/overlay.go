package recognition

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	overlayJPEGQuality = 80
	labelHeight        = 18
	boxThickness       = 2
)

var (
	colorKnown   = color.RGBA{0, 200, 0, 255}
	colorUnknown = color.RGBA{220, 0, 0, 255}
	colorFree    = color.RGBA{230, 160, 0, 255}
	colorText    = color.RGBA{255, 255, 255, 255}
)

// OverlaySink draws boxes and identity labels onto the full-resolution frame
// and keeps the last annotated frame as JPEG.
type OverlaySink struct {
	Path string // optional file receiving every annotated frame

	mu   sync.RWMutex
	last []byte
	seq  uint64
}

func (s *OverlaySink) HandleFrame(frame image.Image, res FrameResult) {
	annotated := Annotate(frame, res.Signals)
	data, err := embedding.EncodeJPEG(annotated, overlayJPEGQuality)
	if err != nil {
		log.Printf("Warning: failed to encode overlay frame %d: %v", res.Seq, err)
		return
	}

	s.mu.Lock()
	s.last = data
	s.seq = res.Seq
	s.mu.Unlock()

	if s.Path != "" {
		if err := writeFileAtomic(s.Path, data); err != nil {
			log.Printf("Warning: failed to write overlay frame: %v", err)
		}
	}
}

// LastJPEG returns the most recent annotated frame and its sequence number.
func (s *OverlaySink) LastJPEG() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.seq
}

// Annotate returns a copy of frame with a box and label per located signal.
func Annotate(frame image.Image, signals []Signal) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)

	for _, sig := range signals {
		if sig.Region.Empty() {
			continue
		}
		c, label := styleFor(sig)
		r := sig.Region.Rect().Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		drawBox(dst, r, c)

		band := image.Rect(r.Min.X, max(r.Max.Y-labelHeight, r.Min.Y), r.Max.X, r.Max.Y)
		draw.Draw(dst, band, image.NewUniform(c), image.Point{}, draw.Src)
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(colorText),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(band.Min.X+4, band.Max.Y-4),
		}
		d.DrawString(label)
	}
	return dst
}

func styleFor(sig Signal) (color.RGBA, string) {
	switch sig.Kind {
	case KindRecognized, KindSuppressed:
		return colorKnown, sig.Identity
	case KindFreePeriod:
		return colorFree, fmt.Sprintf("%s (free)", sig.Identity)
	default:
		return colorUnknown, "UNKNOWN"
	}
}

func drawBox(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	u := image.NewUniform(c)
	t := boxThickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*.jpg")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
