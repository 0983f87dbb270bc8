package output

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/moodfm/moodfmd/internal/analysis"
	"github.com/moodfm/moodfmd/internal/cache"
)

// BeepDevice implements Device on top of the beep speaker. Media is
// fetched through the disk cache and decoded as MP3. The analysis tap,
// when present, is wired between the volume control and the speaker
// controller once at construction; track changes swap the tap's source
// rather than rewiring the chain.
type BeepDevice struct {
	mu sync.Mutex

	cache      *cache.DiskCache
	sampleRate beep.SampleRate
	tap        *analysis.Tap

	// Per-track pipeline
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	started   bool

	// Settings that persist across loads
	gain float64
	rate float64

	suspended bool
	onEnded   func()
}

// NewBeepDevice initializes the speaker and returns a device. tap may be
// nil when analysis is unavailable; playback is unaffected.
func NewBeepDevice(c *cache.DiskCache, sampleRate int, bufferMs int, tap *analysis.Tap) (*BeepDevice, error) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if bufferMs <= 0 {
		bufferMs = 100
	}

	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Duration(bufferMs)*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	return &BeepDevice{
		cache:      c,
		sampleRate: sr,
		tap:        tap,
		gain:       1.0,
		rate:       1.0,
	}, nil
}

// Load replaces the output source with the media behind the URL.
// Any current playback is stopped; the new source is staged paused at
// position 0 and starts when Start is called.
func (d *BeepDevice) Load(mediaURL string) error {
	path, err := d.cache.EnsureFetched(mediaURL)
	if err != nil {
		return fmt.Errorf("failed to fetch media: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open media: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		// Cached file may be truncated or not audio at all
		if invErr := d.cache.Invalidate(mediaURL); invErr != nil {
			log.Printf("Warning: failed to invalidate cache: %v", invErr)
		}
		return fmt.Errorf("failed to decode media: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Stop whatever was playing before swapping the source
	speaker.Clear()
	if d.streamer != nil {
		d.streamer.Close()
	}

	d.streamer = streamer
	d.format = format
	d.started = false

	baseRatio := float64(format.SampleRate) / float64(d.sampleRate)
	d.resampler = beep.ResampleRatio(4, baseRatio*d.rate, streamer)
	d.volume = &effects.Volume{
		Streamer: d.resampler,
		Base:     2,
		Volume:   gainToVolume(d.gain),
		Silent:   d.gain <= 0,
	}

	var top beep.Streamer = d.volume
	if d.tap != nil {
		d.tap.SetSource(d.volume)
		top = d.tap
	}
	d.ctrl = &beep.Ctrl{Streamer: top, Paused: true}

	return nil
}

// Start begins or resumes playback of the loaded source
func (d *BeepDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return ErrNoSource
	}

	if !d.started {
		// The callback fires inside the speaker's streaming loop, where
		// the speaker mutex is held. Taking d.mu there would invert the
		// lock order against Pause/SeekTo, so all work moves to a fresh
		// goroutine.
		speaker.Play(beep.Seq(d.ctrl, beep.Callback(func() {
			go d.handleEnded()
		})))
		d.started = true
	}

	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()

	return nil
}

// handleEnded resets the transport after a natural end. The drained
// sequence has left the mixer by now, so the next Start re-enqueues it.
func (d *BeepDevice) handleEnded() {
	d.mu.Lock()
	d.started = false
	fn := d.onEnded
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pause pauses playback
func (d *BeepDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return
	}
	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
}

// SeekTo moves the playback position, clamped to the source bounds
func (d *BeepDevice) SeekTo(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return ErrNoSource
	}

	n := int(seconds * float64(d.format.SampleRate))
	if n < 0 {
		n = 0
	}
	if max := d.streamer.Len(); n > max {
		n = max
	}

	speaker.Lock()
	err := d.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// SetGain applies the effective output gain in [0,1]
func (d *BeepDevice) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.gain = gain
	if d.volume != nil {
		speaker.Lock()
		d.volume.Volume = gainToVolume(gain)
		d.volume.Silent = gain <= 0
		speaker.Unlock()
	}
}

// SetRate applies the playback rate. The setting persists across loads.
func (d *BeepDevice) SetRate(rate float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rate = rate
	if d.resampler != nil {
		baseRatio := float64(d.format.SampleRate) / float64(d.sampleRate)
		speaker.Lock()
		d.resampler.SetRatio(baseRatio * rate)
		speaker.Unlock()
	}
}

// Position returns the playback position in seconds
func (d *BeepDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := d.streamer.Position()
	speaker.Unlock()
	return float64(pos) / float64(d.format.SampleRate)
}

// Duration returns the total length of the loaded source in seconds
func (d *BeepDevice) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	return float64(d.streamer.Len()) / float64(d.format.SampleRate)
}

// Suspended reports whether the audio graph is suspended
func (d *BeepDevice) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// Suspend suspends the audio graph, releasing the output hardware
func (d *BeepDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.suspended {
		return nil
	}
	if err := speaker.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend audio graph: %w", err)
	}
	d.suspended = true
	return nil
}

// Resume resumes a suspended audio graph
func (d *BeepDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.suspended {
		return nil
	}
	if err := speaker.Resume(); err != nil {
		return fmt.Errorf("failed to resume audio graph: %w", err)
	}
	d.suspended = false
	return nil
}

// SetOnEnded registers the natural end-of-track callback
func (d *BeepDevice) SetOnEnded(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEnded = fn
}

// Close releases the output element
func (d *BeepDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	speaker.Clear()
	if d.streamer != nil {
		d.streamer.Close()
		d.streamer = nil
	}
	speaker.Close()
	return nil
}

// gainToVolume converts a linear gain in (0,1] to the exponent the
// volume effect expects. Gain 0 is handled with the Silent flag instead.
func gainToVolume(gain float64) float64 {
	if gain <= 0 {
		return 0
	}
	return math.Log2(gain)
}

var _ Device = (*BeepDevice)(nil)
