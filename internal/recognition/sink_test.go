package recognition

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

func TestLogSink(t *testing.T) {
	dist := 0.72
	res := FrameResult{Signals: []Signal{
		{Kind: KindRecognized, Identity: "ALICE", Count: 3},
		{Kind: KindNotRecognized, Nearest: "BOB", Distance: &dist},
		{Kind: KindNotRecognized},
		{Kind: KindNoFace},
		{Kind: KindFreePeriod, Identity: "ALICE", Period: 4},
		{Kind: KindSuppressed, Identity: "ALICE", Count: 3},
	}}

	var buf bytes.Buffer
	(&LogSink{Out: &buf}).HandleFrame(nil, res)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"POSITIVE: ALICE Attendance Marked | Count: 3",
		"NEGATIVE: Face Not Recognized (nearest BOB at 0.720)",
		"NEGATIVE: Face Not Recognized",
		"NEGATIVE: No Face Detected",
		"FREE PERIOD: ALICE seen in period 4",
		"SKIPPED: ALICE already marked",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i, w := range want {
		if !strings.Contains(lines[i], w) {
			t.Errorf("line %d = %q, want containing %q", i, lines[i], w)
		}
	}
}

func TestLogSinkQuietEmpty(t *testing.T) {
	var buf bytes.Buffer
	(&LogSink{Out: &buf, QuietEmpty: true}).HandleFrame(nil, FrameResult{Signals: []Signal{{Kind: KindNoFace}}})
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestAnnotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	signals := []Signal{
		{Kind: KindRecognized, Identity: "ALICE", Region: facematch.Region{Top: 10, Right: 60, Bottom: 60, Left: 10}},
		{Kind: KindNotRecognized, Region: facematch.Region{Top: 70, Right: 95, Bottom: 95, Left: 70}},
		{Kind: KindNoFace},
	}

	out := Annotate(src, signals)
	if got := out.RGBAAt(10, 10); got != colorKnown {
		t.Errorf("known box corner = %v, want %v", got, colorKnown)
	}
	if got := out.RGBAAt(70, 70); got != colorUnknown {
		t.Errorf("unknown box corner = %v, want %v", got, colorUnknown)
	}
	if got := out.RGBAAt(30, 30); got != (color.RGBA{}) {
		t.Errorf("box interior changed to %v", got)
	}
	if src.RGBAAt(10, 10) != (color.RGBA{}) {
		t.Error("Annotate modified the source frame")
	}
}

func TestOverlaySink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jpg")
	sink := &OverlaySink{Path: path}

	if data, _ := sink.LastJPEG(); data != nil {
		t.Error("expected no frame before the first HandleFrame")
	}

	sink.HandleFrame(image.NewRGBA(image.Rect(0, 0, 64, 48)), FrameResult{Seq: 7})

	data, seq := sink.LastJPEG()
	if seq != 7 {
		t.Errorf("seq = %d, want 7", seq)
	}
	img, err := embedding.Decode(data)
	if err != nil {
		t.Fatalf("decoding overlay: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("overlay size = %v, want 64x48", img.Bounds())
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("overlay file: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("overlay file differs from last frame")
	}
}

func TestBroadcaster(t *testing.T) {
	var b Broadcaster
	ch := b.AddListener()
	if b.Listeners() != 1 {
		t.Fatalf("Listeners() = %d, want 1", b.Listeners())
	}

	b.HandleFrame(nil, FrameResult{Signals: []Signal{
		{Kind: KindRecognized, Identity: "ALICE"},
		{Kind: KindNoFace},
	}})

	if got := <-ch; got.Identity != "ALICE" {
		t.Errorf("first signal = %+v", got)
	}
	if got := <-ch; got.Kind != KindNoFace {
		t.Errorf("second signal = %+v", got)
	}

	b.RemoveListener(ch)
	if _, ok := <-ch; ok {
		t.Error("channel not closed after RemoveListener")
	}
	// Sending without listeners must not block.
	b.Send(Signal{Kind: KindNoFace})
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	var b Broadcaster
	ch := b.AddListener()
	for range cap(ch) + 10 {
		b.Send(Signal{Kind: KindNoFace})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d signals, want %d", len(ch), cap(ch))
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, nil, b}.HandleFrame(nil, FrameResult{Seq: 1})
	if len(a.results) != 1 || len(b.results) != 1 {
		t.Error("MultiSink did not reach every sink")
	}
}
