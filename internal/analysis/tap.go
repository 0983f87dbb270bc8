// Package analysis provides the non-destructive listening point on the
// audio signal path and the frequency-domain snapshots computed from it
// for visualization. Nothing in this package affects what is heard.
package analysis

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Tap is a streamer wrapper that copies samples into a ring buffer for
// real-time frequency analysis. It sits in the audio pipeline between the
// volume control and the speaker controller and passes audio through
// untouched. One tap instance survives track changes: the source streamer
// is swapped in place so the tap always sees whatever is currently playing.
type Tap struct {
	mu   sync.Mutex
	s    beep.Streamer
	buf  []float64
	pos  int
	size int
}

// NewTap creates a tap with a ring buffer of the given size.
func NewTap(bufSize int) *Tap {
	return &Tap{
		buf:  make([]float64, bufSize),
		size: bufSize,
	}
}

// SetSource swaps the upstream streamer. Callers must hold the speaker
// lock (or have cleared the speaker) while the tap is being played.
func (t *Tap) SetSource(s beep.Streamer) {
	t.mu.Lock()
	t.s = s
	t.mu.Unlock()
}

// Stream passes audio through while capturing a mono mix into the ring buffer.
func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	t.mu.Lock()
	src := t.s
	t.mu.Unlock()

	if src == nil {
		return 0, false
	}

	n, ok := src.Stream(samples)
	t.mu.Lock()
	for i := 0; i < n; i++ {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

// Err returns the underlying streamer's error.
func (t *Tap) Err() error {
	t.mu.Lock()
	src := t.s
	t.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.Err()
}

// Samples returns the last n samples from the ring buffer in chronological order.
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// CopySamples fills dst with the most recent samples in chronological
// order without allocating. Returns the number of samples copied.
func (t *Tap) CopySamples(dst []float64) int {
	n := len(dst)
	if n > t.size {
		n = t.size
	}
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		dst[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return n
}
