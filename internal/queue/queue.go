package queue

import (
	"fmt"
	"sync"

	"github.com/moodfm/moodfmd/internal/catalog"
)

// Queue manages the ordered list of tracks available for next/previous
// navigation, plus an optional source label naming the collection it was
// loaded from. The queue and current index are kept consistent: if the
// queue is non-empty the index is a valid position or -1 (nothing loaded);
// if empty the index is always -1.
type Queue struct {
	mu      sync.RWMutex
	tracks  []catalog.Track
	source  string
	current int
}

// New creates a new empty queue
func New() *Queue {
	return &Queue{
		tracks:  make([]catalog.Track, 0),
		current: -1,
	}
}

// Replace swaps in a new track list and source label.
// The current index is reset to -1; callers position it afterwards.
func (q *Queue) Replace(tracks []catalog.Track, source string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]catalog.Track, len(tracks))
	copy(q.tracks, tracks)
	q.source = source
	q.current = -1
}

// Clear removes all tracks and resets the index
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = make([]catalog.Track, 0)
	q.source = ""
	q.current = -1
}

// Current returns the current track
func (q *Queue) Current() (*catalog.Track, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current < 0 || q.current >= len(q.tracks) {
		return nil, fmt.Errorf("no current track")
	}

	track := q.tracks[q.current]
	return &track, nil
}

// Track returns the track at the given index
func (q *Queue) Track(index int) (*catalog.Track, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if index < 0 || index >= len(q.tracks) {
		return nil, fmt.Errorf("invalid track index: %d", index)
	}

	track := q.tracks[index]
	return &track, nil
}

// SetCurrent moves the index to a specific position
func (q *Queue) SetCurrent(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < -1 || index >= len(q.tracks) {
		return fmt.Errorf("invalid track index: %d", index)
	}

	q.current = index
	return nil
}

// IndexOf returns the position of the track with the given ID, or -1
func (q *Queue) IndexOf(trackID int) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for i := range q.tracks {
		if q.tracks[i].ID == trackID {
			return i
		}
	}
	return -1
}

// Len returns the number of tracks
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// CurrentIndex returns the current track index
func (q *Queue) CurrentIndex() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current
}

// Source returns the label of the collection the queue was loaded from
func (q *Queue) Source() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.source
}

// Tracks returns all tracks
func (q *Queue) Tracks() []catalog.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	// Return a copy to prevent external modification
	tracks := make([]catalog.Track, len(q.tracks))
	copy(tracks, q.tracks)
	return tracks
}
