package recognition

import (
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Broadcaster fans signals out to live listeners such as SSE clients.
// Slow listeners drop signals instead of blocking the loop.
type Broadcaster struct {
	listeners []chan Signal
	mu        sync.RWMutex
}

// AddListener registers a new buffered listener.
func (b *Broadcaster) AddListener() chan Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Signal, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes ch.
func (b *Broadcaster) RemoveListener(ch chan Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Listeners returns the number of registered listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Send delivers sig to every listener with buffer space.
func (b *Broadcaster) Send(sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- sig:
		default:
			// Listener buffer full, skip.
		}
	}
}

func (b *Broadcaster) HandleFrame(_ image.Image, res FrameResult) {
	for _, sig := range res.Signals {
		b.Send(sig)
	}
}
