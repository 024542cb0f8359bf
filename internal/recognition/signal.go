package recognition

import (
	"image"
	"math"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Kind classifies the outcome for one detection (or one empty frame).
type Kind string

const (
	KindRecognized    Kind = "recognized"
	KindNoFace        Kind = "no_face"
	KindNotRecognized Kind = "not_recognized"
	KindFreePeriod    Kind = "free_period"
	KindSuppressed    Kind = "suppressed"
)

// Signal is one per-frame outcome. None of them is an error.
type Signal struct {
	Kind     Kind             `json:"type"`
	Identity string           `json:"identity,omitempty"`
	Nearest  string           `json:"nearest,omitempty"`
	Distance *float64         `json:"distance,omitempty"`
	Count    int              `json:"count,omitempty"`
	Period   int              `json:"period,omitempty"`
	Region   facematch.Region `json:"region"` // full-resolution coordinates
	Frame    uint64           `json:"frame"`
	At       time.Time        `json:"at"`
}

// FrameResult collects the signals of one processed frame.
type FrameResult struct {
	Seq        uint64    `json:"seq"`
	At         time.Time `json:"at"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Detections int       `json:"detections"`
	Skipped    bool      `json:"skipped"` // extraction failed, frame dropped
	Signals    []Signal  `json:"signals"`
}

// Recorded returns the identities written to the ledger for this frame.
func (r FrameResult) Recorded() []string {
	var ids []string
	for _, s := range r.Signals {
		if s.Kind == KindRecognized {
			ids = append(ids, s.Identity)
		}
	}
	return ids
}

// Sink presents processed frames (log lines, overlays, live streams).
// HandleFrame is called from the loop goroutine and must not block for long.
type Sink interface {
	HandleFrame(frame image.Image, res FrameResult)
}

// MultiSink fans a frame out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) HandleFrame(frame image.Image, res FrameResult) {
	for _, s := range m {
		if s != nil {
			s.HandleFrame(frame, res)
		}
	}
}

func finite(d float64) *float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return nil
	}
	return &d
}
