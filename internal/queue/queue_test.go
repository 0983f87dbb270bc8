package queue

import (
	"testing"

	"github.com/moodfm/moodfmd/internal/catalog"
)

func sampleTracks() []catalog.Track {
	return []catalog.Track{
		{ID: 10, Title: "One", MediaURL: "https://cdn.test/1.mp3"},
		{ID: 20, Title: "Two", MediaURL: "https://cdn.test/2.mp3"},
		{ID: 30, Title: "Three", MediaURL: "https://cdn.test/3.mp3"},
	}
}

func TestNew_EmptyQueue(t *testing.T) {
	q := New()

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", q.CurrentIndex())
	}
	if _, err := q.Current(); err == nil {
		t.Error("Current() on empty queue should error")
	}
}

func TestReplace_ResetsIndex(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "search: test")
	if err := q.SetCurrent(2); err != nil {
		t.Fatalf("SetCurrent(2) error: %v", err)
	}

	q.Replace(sampleTracks()[:2], "playlist: short")

	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d after Replace, want -1", q.CurrentIndex())
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.Source() != "playlist: short" {
		t.Errorf("Source() = %q, want %q", q.Source(), "playlist: short")
	}
}

func TestReplace_CopiesInput(t *testing.T) {
	q := New()
	tracks := sampleTracks()
	q.Replace(tracks, "")

	tracks[0].Title = "mutated"

	got, err := q.Track(0)
	if err != nil {
		t.Fatalf("Track(0) error: %v", err)
	}
	if got.Title != "One" {
		t.Errorf("queue saw caller mutation: Title = %q", got.Title)
	}
}

func TestSetCurrent_Bounds(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "")

	if err := q.SetCurrent(-1); err != nil {
		t.Errorf("SetCurrent(-1) should unload: %v", err)
	}
	if err := q.SetCurrent(2); err != nil {
		t.Errorf("SetCurrent(2) error: %v", err)
	}
	if err := q.SetCurrent(3); err == nil {
		t.Error("SetCurrent(3) should be out of range")
	}
	if err := q.SetCurrent(-2); err == nil {
		t.Error("SetCurrent(-2) should be out of range")
	}
}

func TestCurrent_FollowsIndex(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "")
	if err := q.SetCurrent(1); err != nil {
		t.Fatalf("SetCurrent(1) error: %v", err)
	}

	track, err := q.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if track.ID != 20 {
		t.Errorf("Current().ID = %d, want 20", track.ID)
	}
}

func TestIndexOf(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "")

	if got := q.IndexOf(30); got != 2 {
		t.Errorf("IndexOf(30) = %d, want 2", got)
	}
	if got := q.IndexOf(99); got != -1 {
		t.Errorf("IndexOf(99) = %d, want -1", got)
	}
}

func TestClear(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "search: test")
	if err := q.SetCurrent(0); err != nil {
		t.Fatalf("SetCurrent(0) error: %v", err)
	}

	q.Clear()

	if q.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", q.Len())
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d after Clear, want -1", q.CurrentIndex())
	}
	if q.Source() != "" {
		t.Errorf("Source() = %q after Clear, want empty", q.Source())
	}
}

func TestTracks_ReturnsCopy(t *testing.T) {
	q := New()
	q.Replace(sampleTracks(), "")

	got := q.Tracks()
	got[0].Title = "mutated"

	fresh, err := q.Track(0)
	if err != nil {
		t.Fatalf("Track(0) error: %v", err)
	}
	if fresh.Title != "One" {
		t.Errorf("queue saw mutation through Tracks(): Title = %q", fresh.Title)
	}
}
