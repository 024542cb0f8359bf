package recognition

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"
)

// LogSink prints one status line per signal.
type LogSink struct {
	Out        io.Writer // defaults to os.Stdout
	QuietEmpty bool      // suppress "no face" lines

	mu sync.Mutex
}

func (s *LogSink) HandleFrame(_ image.Image, res FrameResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	for _, sig := range res.Signals {
		if line := s.format(sig); line != "" {
			fmt.Fprintln(out, line)
		}
	}
}

func (s *LogSink) format(sig Signal) string {
	switch sig.Kind {
	case KindRecognized:
		return fmt.Sprintf("✅ POSITIVE: %s Attendance Marked | Count: %d", sig.Identity, sig.Count)
	case KindNoFace:
		if s.QuietEmpty {
			return ""
		}
		return "❌ NEGATIVE: No Face Detected"
	case KindNotRecognized:
		if sig.Distance != nil && sig.Nearest != "" {
			return fmt.Sprintf("❌ NEGATIVE: Face Not Recognized (nearest %s at %.3f)", sig.Nearest, *sig.Distance)
		}
		return "❌ NEGATIVE: Face Not Recognized"
	case KindFreePeriod:
		return fmt.Sprintf("⏸  FREE PERIOD: %s seen in period %d, attendance disabled", sig.Identity, sig.Period)
	case KindSuppressed:
		return fmt.Sprintf("⏭  SKIPPED: %s already marked (cooldown) | Count: %d", sig.Identity, sig.Count)
	default:
		return ""
	}
}
