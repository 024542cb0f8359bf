// Package capture provides frame sources for the recognition loop.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
)

var (
	// ErrEndOfStream means a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrBadFrame means one frame could not be decoded. The source is still usable.
	ErrBadFrame = errors.New("bad frame")
)

// Source yields successive frames. Next blocks until a frame is available,
// the context is cancelled or the source fails.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// AcquisitionError reports a frame source that can no longer deliver frames.
type AcquisitionError struct {
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("frame source %s: %v", e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

func badFrame(err error) error {
	return fmt.Errorf("%w: %v", ErrBadFrame, err)
}

// Open picks the configured source: replay directory, then snapshot URL,
// then the V4L2 device.
func Open(cfg *config.CameraConfig) (Source, error) {
	switch {
	case cfg.ReplayDir != "":
		src, err := NewDirSource(cfg.ReplayDir, cfg.Interval)
		if err != nil {
			return nil, err
		}
		return src, nil
	case cfg.SnapshotURL != "":
		return NewSnapshotSource(cfg.SnapshotURL, cfg.Interval), nil
	case cfg.Device != "":
		src, err := OpenWebcam(cfg.Device, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, errors.New("no frame source configured (set CAMERA_DEVICE, CAMERA_SNAPSHOT_URL or CAMERA_REPLAY_DIR)")
	}
}

// pace waits until interval has passed since last, or ctx is done.
func pace(ctx context.Context, last time.Time, interval time.Duration) error {
	if interval <= 0 || last.IsZero() {
		return ctx.Err()
	}
	wait := time.Until(last.Add(interval))
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
