// Package session implements the shared playback session: the single
// authoritative owner of the audio output device and all transport state.
// Any number of independent control surfaces call its methods concurrently;
// every mutation of playback state funnels through here.
package session

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/moodfm/moodfmd/internal/analysis"
	"github.com/moodfm/moodfmd/internal/catalog"
	"github.com/moodfm/moodfmd/internal/output"
	"github.com/moodfm/moodfmd/internal/queue"
)

// restartThreshold is how far into a track Previous restarts it instead
// of moving back through the queue.
const restartThreshold = 3.0 // seconds

const (
	minRate = 0.25
	maxRate = 2.0
)

// Session coordinates playback against the audio output device.
// It is created once per authenticated visit and lives until Close.
type Session struct {
	mu sync.Mutex

	device   output.Device
	tap      *analysis.Tap      // nil when analysis is unavailable
	analyzer *analysis.Analyzer // nil when analysis is unavailable

	q *queue.Queue

	current       *catalog.Track
	playing       bool
	volume        float64
	muted         bool
	preMuteVolume float64
	shuffle       bool
	repeat        bool
	rate          float64

	// generation stamps asynchronous device starts. A start whose stamp
	// no longer matches at resolution time was superseded by a newer call
	// and must not overwrite state.
	generation uint64

	rng *rand.Rand

	// Subsystem change notification callback (e.g., for idle notifications)
	notify func(subsystem string)

	// Playback-start failures are reported here; they are never retried
	errs chan error
}

// New creates the playback session around an output device. tap may be
// nil when the environment cannot provide an analysis tap; the session
// plays audio regardless and the visualizer renders nothing.
func New(device output.Device, tap *analysis.Tap, initialVolume float64) *Session {
	if initialVolume < 0 || initialVolume > 1 {
		initialVolume = 0.7
	}

	s := &Session{
		device:        device,
		tap:           tap,
		q:             queue.New(),
		volume:        initialVolume,
		preMuteVolume: initialVolume,
		rate:          1.0,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		errs:          make(chan error, 8),
	}

	if tap != nil {
		analyzer, err := analysis.NewAnalyzer(tap)
		if err != nil {
			// Not fatal: the session continues without visualization
			log.Printf("Analysis unavailable: %v", err)
		} else {
			s.analyzer = analyzer
		}
	}

	device.SetGain(initialVolume)
	device.SetRate(1.0)
	device.SetOnEnded(s.handleTrackEnded)

	return s
}

// SetNotify sets the callback for subsystem change notifications.
// Subsystems follow the MPD naming: "player", "mixer", "options", "playlist".
func (s *Session) SetNotify(callback func(subsystem string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = callback
}

// Errors returns the channel playback-start failures are reported on
func (s *Session) Errors() <-chan error {
	return s.errs
}

// Analyzer returns the frequency analyzer, or nil when analysis is unavailable
func (s *Session) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// Play starts playback of a track. If queueOverride is given, it replaces
// the active queue and the index points at the track within it (0 when
// absent). Without an override the index is recomputed against the
// existing queue; a track not found there collapses the index to 0.
// The output source is always replaced and reloaded, even when the track
// matches the previous one, restarting it from position 0.
func (s *Session) Play(track catalog.Track, queueOverride []catalog.Track, sourceLabel string) {
	s.mu.Lock()

	if queueOverride != nil {
		s.q.Replace(queueOverride, sourceLabel)
	}
	if s.q.Len() > 0 {
		idx := s.q.IndexOf(track.ID)
		if idx == -1 {
			idx = 0
		}
		if err := s.q.SetCurrent(idx); err != nil {
			log.Printf("Failed to position queue: %v", err)
		}
	}

	t := track
	s.current = &t
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.notifyChange("playlist")
	s.notifyChange("player")

	go s.startPlayback(gen, track.MediaURL)
}

// startPlayback loads and starts the device source. The generation stamp
// decides, at resolution time, whether this start is still authoritative.
func (s *Session) startPlayback(gen uint64, mediaURL string) {
	s.resumeGraph()

	err := s.device.Load(mediaURL)
	if err == nil {
		err = s.device.Start()
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		// Superseded by a newer call; swallow the outcome
		if err != nil {
			log.Printf("Ignoring failure of superseded playback start: %v", err)
		}
		return
	}
	if err != nil {
		s.playing = false
		s.mu.Unlock()
		s.reportError(fmt.Errorf("failed to start playback: %w", err))
	} else {
		s.playing = true
		s.mu.Unlock()
	}

	s.notifyChange("player")
}

// resumeGraph resumes a suspended audio graph. Required before playback
// because many environments suspend audio processing until a
// user-initiated action.
func (s *Session) resumeGraph() {
	if !s.device.Suspended() {
		return
	}
	if err := s.device.Resume(); err != nil {
		log.Printf("Error resuming audio graph: %v", err)
	}
}

// TogglePlay flips between playing and paused. No-op without a current
// track. Pause is synchronous and always succeeds; resuming follows the
// same failure policy as Play.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}

	if s.playing {
		s.playing = false
		s.mu.Unlock()
		s.device.Pause()
		s.notifyChange("player")
		return
	}

	s.generation++
	gen := s.generation
	s.mu.Unlock()

	go func() {
		s.resumeGraph()

		err := s.device.Start()

		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.playing = false
			s.mu.Unlock()
			s.reportError(fmt.Errorf("failed to resume playback: %w", err))
		} else {
			s.playing = true
			s.mu.Unlock()
		}

		s.notifyChange("player")
	}()
}

// PlayNext advances to the next track. With shuffle enabled a uniformly
// random index different from the current one is chosen (same index only
// when the queue has a single entry); otherwise the index wraps forward.
// No-op on an empty queue.
func (s *Session) PlayNext() {
	s.mu.Lock()
	n := s.q.Len()
	if n == 0 {
		s.mu.Unlock()
		return
	}

	idx := s.q.CurrentIndex()
	var next int
	if s.shuffle {
		next = s.randomIndex(idx, n)
	} else {
		next = (idx + 1) % n
	}

	track, err := s.q.Track(next)
	s.mu.Unlock()
	if err != nil {
		log.Printf("Invalid next track index %d: %v", next, err)
		return
	}

	s.Play(*track, nil, "")
}

// PlayPrevious moves to the previous track. More than 3 seconds into the
// current track it restarts that track from position 0 instead; this
// check short-circuits before any shuffle logic.
func (s *Session) PlayPrevious() {
	s.mu.Lock()
	n := s.q.Len()
	if n == 0 {
		s.mu.Unlock()
		return
	}

	if s.current != nil && s.device.Position() > restartThreshold {
		s.generation++
		gen := s.generation
		s.mu.Unlock()
		go s.restartCurrent(gen)
		return
	}

	idx := s.q.CurrentIndex()
	var prev int
	if s.shuffle {
		prev = s.randomIndex(idx, n)
	} else {
		prev = (idx - 1 + n) % n
	}

	track, err := s.q.Track(prev)
	s.mu.Unlock()
	if err != nil {
		log.Printf("Invalid previous track index %d: %v", prev, err)
		return
	}

	s.Play(*track, nil, "")
}

// restartCurrent rewinds the loaded source to 0 and starts it
func (s *Session) restartCurrent(gen uint64) {
	s.resumeGraph()

	err := s.device.SeekTo(0)
	if err == nil {
		err = s.device.Start()
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.playing = false
		s.mu.Unlock()
		s.reportError(fmt.Errorf("failed to restart track: %w", err))
	} else {
		s.playing = true
		s.mu.Unlock()
	}

	s.notifyChange("player")
}

// randomIndex picks a uniformly random index in [0,n) different from
// current, except when the queue has exactly one entry.
// Callers must hold s.mu.
func (s *Session) randomIndex(current, n int) int {
	if n == 1 {
		return 0
	}
	for {
		i := s.rng.Intn(n)
		if i != current {
			return i
		}
	}
}

// handleTrackEnded reacts to natural completion of the current track:
// repeat restarts it at position 0, otherwise it behaves like PlayNext.
func (s *Session) handleTrackEnded() {
	s.mu.Lock()
	repeat := s.repeat
	hasCurrent := s.current != nil
	s.mu.Unlock()

	if !hasCurrent {
		return
	}

	if repeat {
		s.mu.Lock()
		s.generation++
		gen := s.generation
		s.mu.Unlock()
		s.restartCurrent(gen)
		return
	}

	s.PlayNext()
}

// SeekTo moves the playback position. No-op without an active track;
// the device clamps to its own bounds.
func (s *Session) SeekTo(seconds float64) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.device.SeekTo(seconds); err != nil {
		log.Printf("Seek failed: %v", err)
		return
	}
	s.notifyChange("player")
}

// SetVolume sets the stored volume, clamped to [0,1]. Raising the volume
// above zero while muted clears the mute.
func (s *Session) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	s.mu.Lock()
	s.volume = v
	if v > 0 && s.muted {
		s.muted = false
	}
	gain := s.effectiveGain()
	s.mu.Unlock()

	s.device.SetGain(gain)
	s.notifyChange("mixer")
}

// ToggleMute flips the mute flag. Muting snapshots the current volume
// and drives the effective output gain to 0; unmuting restores the
// snapshot. The stored volume and the mute flag stay independent.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	if s.muted {
		s.volume = s.preMuteVolume
		s.muted = false
	} else {
		s.preMuteVolume = s.volume
		s.muted = true
	}
	gain := s.effectiveGain()
	s.mu.Unlock()

	s.device.SetGain(gain)
	s.notifyChange("mixer")
}

// effectiveGain is the actual loudness sent to the output device.
// Callers must hold s.mu.
func (s *Session) effectiveGain() float64 {
	if s.muted {
		return 0
	}
	return s.volume
}

// SetPlaybackRate sets the playback rate, clamped to [0.25, 2.0], and
// applies it to the device immediately. The device setting persists
// across track loads.
func (s *Session) SetPlaybackRate(r float64) {
	if r < minRate {
		r = minRate
	}
	if r > maxRate {
		r = maxRate
	}

	s.mu.Lock()
	s.rate = r
	s.mu.Unlock()

	s.device.SetRate(r)
	s.notifyChange("options")
}

// ToggleShuffle flips shuffle mode; takes effect on the next advance
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	s.shuffle = !s.shuffle
	s.mu.Unlock()
	s.notifyChange("options")
}

// ToggleRepeat flips repeat mode; takes effect on the next end-of-track
func (s *Session) ToggleRepeat() {
	s.mu.Lock()
	s.repeat = !s.repeat
	s.mu.Unlock()
	s.notifyChange("options")
}

// SetPlaylist replaces the queue. While something is actively playing the
// current track is left untouched and only the upcoming queue context
// changes. While idle, the first track of the new list becomes current
// (loaded, not played); an empty list clears the current track.
func (s *Session) SetPlaylist(tracks []catalog.Track, sourceLabel string) {
	s.mu.Lock()
	wasPlaying := s.playing

	s.q.Replace(tracks, sourceLabel)

	if wasPlaying {
		// Re-anchor the index at the playing track when the new list
		// contains it; otherwise the index stays unloaded (-1) and the
		// next advance starts from the top.
		if s.current != nil {
			if idx := s.q.IndexOf(s.current.ID); idx != -1 {
				if err := s.q.SetCurrent(idx); err != nil {
					log.Printf("Failed to position queue: %v", err)
				}
			}
		}
		s.mu.Unlock()
		s.notifyChange("playlist")
		return
	}

	if len(tracks) == 0 {
		s.current = nil
		s.playing = false
		s.generation++
		s.mu.Unlock()
		s.notifyChange("playlist")
		s.notifyChange("player")
		return
	}

	if err := s.q.SetCurrent(0); err != nil {
		log.Printf("Failed to position queue: %v", err)
	}
	t := tracks[0]
	s.current = &t
	s.playing = false
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.notifyChange("playlist")
	s.notifyChange("player")

	go s.stageTrack(gen, t.MediaURL)
}

// stageTrack loads a source without starting it, so the staged track is
// ready for the next user-initiated play.
func (s *Session) stageTrack(gen uint64, mediaURL string) {
	err := s.device.Load(mediaURL)
	if err == nil {
		return
	}

	s.mu.Lock()
	stale := gen != s.generation
	s.mu.Unlock()
	if stale {
		return
	}
	log.Printf("Failed to stage track: %v", err)
}

// Close tears the session down: the output element is released and the
// analysis tap goes silent with it.
func (s *Session) Close() error {
	s.mu.Lock()
	s.playing = false
	s.current = nil
	s.generation++
	s.mu.Unlock()

	log.Printf("Closing playback session")
	return s.device.Close()
}

// notifyChange invokes the subsystem change callback if one is set
func (s *Session) notifyChange(subsystem string) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(subsystem)
	}
}

// reportError pushes a failure onto the error channel without blocking
func (s *Session) reportError(err error) {
	log.Printf("Playback error: %v", err)
	select {
	case s.errs <- err:
	default:
		log.Printf("Warning: error channel full, dropping report")
	}
}
