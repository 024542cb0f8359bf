package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/recognition"
)

const sseKeepAlive = 15 * time.Second

// FrameProvider returns the last annotated frame as JPEG.
type FrameProvider interface {
	LastJPEG() ([]byte, uint64)
}

// LiveHandler streams the running loop: last frame and signal events.
type LiveHandler struct {
	frames      FrameProvider
	broadcaster *recognition.Broadcaster
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(frames FrameProvider, broadcaster *recognition.Broadcaster) *LiveHandler {
	return &LiveHandler{frames: frames, broadcaster: broadcaster}
}

// Frame serves the last annotated frame.
func (h *LiveHandler) Frame(w http.ResponseWriter, r *http.Request) {
	if h.frames == nil {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}
	data, seq := h.frames.LastJPEG()
	if len(data) == 0 {
		respondError(w, http.StatusNotFound, "no frame available")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Events streams recognition signals as server-sent events until the client leaves.
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := h.broadcaster.AddListener()
	defer h.broadcaster.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", map[string]any{"listeners": h.broadcaster.Listeners()})

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			sendSSEEvent(w, flusher, "ping", map[string]int64{"ts": time.Now().Unix()})
		case sig, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(sig.Kind), sig)
		}
	}
}
