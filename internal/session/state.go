package session

import "github.com/moodfm/moodfmd/internal/catalog"

// State is a read-only snapshot of the shared playback state. Consumers
// read snapshots and invoke session methods; they never write state.
type State struct {
	CurrentTrack    *catalog.Track
	Queue           []catalog.Track
	QueueSource     string
	QueueIndex      int
	Playing         bool
	PositionSeconds float64
	DurationSeconds float64
	Volume          float64
	Muted           bool
	Shuffle         bool
	Repeat          bool
	Rate            float64
}

// Snapshot returns the current playback state
func (s *Session) Snapshot() State {
	s.mu.Lock()

	st := State{
		Queue:       s.q.Tracks(),
		QueueSource: s.q.Source(),
		QueueIndex:  s.q.CurrentIndex(),
		Playing:     s.playing,
		Volume:      s.volume,
		Muted:       s.muted,
		Shuffle:     s.shuffle,
		Repeat:      s.repeat,
		Rate:        s.rate,
	}
	if s.current != nil {
		t := *s.current
		st.CurrentTrack = &t
	}
	s.mu.Unlock()

	// Device queries take the device's own lock; read them outside ours
	st.PositionSeconds = s.device.Position()
	st.DurationSeconds = s.device.Duration()

	return st
}

// CurrentTrack returns the current track, or nil when nothing is loaded
func (s *Session) CurrentTrack() *catalog.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// IsPlaying reports whether playback is active
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Position returns the playback position in seconds. Together with
// CurrentTrack this is what mood reactions are recorded against.
func (s *Session) Position() float64 {
	return s.device.Position()
}

// QueueTrack returns a copy of the queue entry at the given index, or
// nil when the index is out of range.
func (s *Session) QueueTrack(index int) *catalog.Track {
	t, err := s.q.Track(index)
	if err != nil {
		return nil
	}
	return t
}

// QueueTracks returns a copy of the current queue
func (s *Session) QueueTracks() []catalog.Track {
	return s.q.Tracks()
}
