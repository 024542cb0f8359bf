// Package recognition drives the capture, extract, match and record cycle.
package recognition

import (
	"context"
	"errors"
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

const defaultRetryBackoff = 500 * time.Millisecond

// Loop processes one frame at a time until stopped. Gallery and Ledger must
// not be swapped while Run is active.
type Loop struct {
	Source    capture.Source
	Extractor facematch.Extractor
	Gallery   *gallery.Gallery
	Ledger    *ledger.Ledger
	Sink      Sink               // optional
	Schedule  *schedule.Schedule // optional; free periods disable recording

	Threshold float64 // maximum match distance
	Scale     float64 // frame downsample factor before extraction, (0, 1]

	PersistRetries int           // ledger retries before a write failure is fatal
	RetryBackoff   time.Duration // first retry delay, doubled per attempt

	Now func() time.Time // defaults to time.Now

	frames atomic.Uint64
}

// Run loops until ctx is cancelled (returns nil), the source ends (returns nil),
// the source fails (returns *capture.AcquisitionError) or the ledger cannot be
// written (returns *ledger.PersistenceError). Cancellation is checked between frames.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := l.Source.Next(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, capture.ErrBadFrame):
			log.Printf("Skipping frame: %v", err)
			continue
		case errors.Is(err, capture.ErrEndOfStream):
			log.Printf("Frame source ended after %d frames", l.frames.Load())
			return nil
		default:
			var acqErr *capture.AcquisitionError
			if !errors.As(err, &acqErr) {
				err = &capture.AcquisitionError{Source: "frame source", Err: err}
			}
			return err
		}

		if _, err := l.ProcessFrame(ctx, frame); err != nil {
			return err
		}
	}
}

// ProcessFrame runs one iteration on frame and hands the result to the sink.
// The only error it returns is a ledger persistence failure.
func (l *Loop) ProcessFrame(ctx context.Context, frame image.Image) (FrameResult, error) {
	seq := l.frames.Add(1)
	now := l.now()
	bounds := frame.Bounds()
	res := FrameResult{
		Seq:    seq,
		At:     now,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	small := embedding.Downsample(frame, l.scale())
	detections, err := l.Extractor.Extract(ctx, small)
	if err != nil {
		log.Printf("Skipping frame %d: extraction failed: %v", res.Seq, err)
		res.Skipped = true
		l.emit(frame, res)
		return res, nil
	}
	res.Detections = len(detections)

	if len(detections) == 0 {
		res.Signals = append(res.Signals, Signal{Kind: KindNoFace, Frame: res.Seq, At: now})
		l.emit(frame, res)
		return res, nil
	}

	period, inPeriod := l.Schedule.At(now)

	for _, d := range detections {
		sig := Signal{
			Region: d.Region.Rescale(small.Bounds(), bounds),
			Frame:  res.Seq,
			At:     now,
		}

		match := l.Gallery.Match(d.Embedding, l.Threshold)
		sig.Nearest = match.Nearest
		sig.Distance = finite(match.Distance)

		switch {
		case !match.Matched():
			sig.Kind = KindNotRecognized
		case inPeriod && period.Free:
			sig.Kind = KindFreePeriod
			sig.Identity = match.Identity
			sig.Period = period.Number
		default:
			sig.Identity = match.Identity
			if inPeriod {
				sig.Period = period.Number
			}
			entry, err := l.record(ctx, match.Identity)
			switch {
			case errors.Is(err, ledger.ErrCooldown):
				sig.Kind = KindSuppressed
				sig.Count = l.Ledger.Count(match.Identity)
			case err != nil:
				l.emit(frame, res)
				return res, err
			default:
				sig.Kind = KindRecognized
				sig.Count = entry.Count
			}
		}
		res.Signals = append(res.Signals, sig)
	}

	l.emit(frame, res)
	return res, nil
}

// record writes one ledger row, retrying persistence failures with backoff.
func (l *Loop) record(ctx context.Context, identity string) (ledger.Entry, error) {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	for attempt := 0; ; attempt++ {
		entry, err := l.Ledger.Record(ctx, identity)
		var perr *ledger.PersistenceError
		if err == nil || !errors.As(err, &perr) || attempt >= l.PersistRetries {
			return entry, err
		}

		log.Printf("Warning: attendance write failed (attempt %d of %d): %v", attempt+1, l.PersistRetries+1, err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return entry, err
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (l *Loop) scale() float64 {
	if l.Scale <= 0 || l.Scale > 1 {
		return 1
	}
	return l.Scale
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) emit(frame image.Image, res FrameResult) {
	if l.Sink != nil {
		l.Sink.HandleFrame(frame, res)
	}
}

// Frames returns the number of frames processed so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}
