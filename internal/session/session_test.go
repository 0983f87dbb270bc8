package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moodfm/moodfmd/internal/catalog"
	"github.com/moodfm/moodfmd/internal/output"
)

var (
	trackA = catalog.Track{ID: 1, Title: "Aurora", Artist: "North", MediaURL: "https://cdn.test/a.mp3"}
	trackB = catalog.Track{ID: 2, Title: "Basalt", Artist: "North", MediaURL: "https://cdn.test/b.mp3"}
	trackC = catalog.Track{ID: 3, Title: "Cirrus", Artist: "South", MediaURL: "https://cdn.test/c.mp3"}
	trackD = catalog.Track{ID: 4, Title: "Drift", Artist: "South", MediaURL: "https://cdn.test/d.mp3"}
)

func threeTracks() []catalog.Track {
	return []catalog.Track{trackA, trackB, trackC}
}

func newTestSession(t *testing.T) (*Session, *output.Mock) {
	t.Helper()
	m := output.NewMock()
	s := New(m, nil, 0.7)
	t.Cleanup(func() { s.Close() })
	return s, m
}

// waitFor polls until cond holds or the deadline passes. Playback
// starts resolve asynchronously, so state assertions go through here.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func playAndWait(t *testing.T, s *Session, track catalog.Track, queue []catalog.Track, source string) {
	t.Helper()
	s.Play(track, queue, source)
	waitFor(t, s.IsPlaying, "playback never started")
}

func TestNew_ClampsInitialVolume(t *testing.T) {
	m := output.NewMock()
	s := New(m, nil, 1.5)
	defer s.Close()

	if got := s.Snapshot().Volume; got != 0.7 {
		t.Errorf("Volume = %v, want default 0.7", got)
	}
	if got := m.Gain(); got != 0.7 {
		t.Errorf("device gain = %v, want 0.7", got)
	}
}

func TestPlay_LoadsAndStarts(t *testing.T) {
	s, m := newTestSession(t)

	playAndWait(t, s, trackA, threeTracks(), "search: aurora")

	if got := m.LoadedURL(); got != trackA.MediaURL {
		t.Errorf("loaded URL = %q, want %q", got, trackA.MediaURL)
	}
	state := s.Snapshot()
	if state.QueueIndex != 0 {
		t.Errorf("QueueIndex = %d, want 0", state.QueueIndex)
	}
	if state.QueueSource != "search: aurora" {
		t.Errorf("QueueSource = %q, want %q", state.QueueSource, "search: aurora")
	}
	if len(state.Queue) != 3 {
		t.Errorf("queue length = %d, want 3", len(state.Queue))
	}
}

func TestPlay_SameTrackRestarts(t *testing.T) {
	s, m := newTestSession(t)

	playAndWait(t, s, trackA, threeTracks(), "")

	s.Play(trackA, nil, "")
	waitFor(t, func() bool { return len(m.LoadCalls) == 2 }, "track was not reloaded")

	if got := m.LoadedURL(); got != trackA.MediaURL {
		t.Errorf("loaded URL = %q, want %q", got, trackA.MediaURL)
	}
}

func TestPlay_LastWriterWins(t *testing.T) {
	s, m := newTestSession(t)

	// Hold both loads in flight so the starts resolve concurrently
	gate := make(chan struct{})
	m.SetLoadGate(gate)

	s.Play(trackA, threeTracks(), "")
	s.Play(trackB, nil, "")
	close(gate)

	waitFor(t, s.IsPlaying, "playback never started")

	current := s.CurrentTrack()
	if current == nil || current.ID != trackB.ID {
		t.Fatalf("current track = %+v, want %v", current, trackB.ID)
	}
	if got := s.Snapshot().QueueIndex; got != 1 {
		t.Errorf("QueueIndex = %d, want 1", got)
	}
}

func TestPlay_TrackOutsideQueueResetsIndex(t *testing.T) {
	s, _ := newTestSession(t)

	playAndWait(t, s, trackB, threeTracks(), "")

	// A track missing from the queue collapses the index to the top
	s.Play(trackD, nil, "")
	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == trackD.ID
	}, "current track never switched")

	if got := s.Snapshot().QueueIndex; got != 0 {
		t.Errorf("QueueIndex = %d, want 0", got)
	}
}

func TestPlay_FailureReported(t *testing.T) {
	s, m := newTestSession(t)
	m.SetLoadErr(errors.New("decode failed"))

	s.Play(trackA, threeTracks(), "")

	select {
	case err := <-s.Errors():
		if err == nil {
			t.Fatal("reported error is nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}

	if s.IsPlaying() {
		t.Error("IsPlaying() = true after failed start")
	}
}

func TestTogglePlay_PausesAndResumes(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackA, threeTracks(), "")

	s.TogglePlay()
	if s.IsPlaying() {
		t.Error("IsPlaying() = true after pause")
	}
	if m.PauseCount != 1 {
		t.Errorf("PauseCount = %d, want 1", m.PauseCount)
	}

	s.TogglePlay()
	waitFor(t, s.IsPlaying, "resume never completed")
	if !m.Playing() {
		t.Error("device not playing after resume")
	}
}

func TestTogglePlay_NoCurrentTrack(t *testing.T) {
	s, m := newTestSession(t)

	s.TogglePlay()
	time.Sleep(20 * time.Millisecond)

	if s.IsPlaying() {
		t.Error("IsPlaying() = true with no track")
	}
	if m.StartCount != 0 {
		t.Errorf("StartCount = %d, want 0", m.StartCount)
	}
}

func TestPlayNext_AdvancesAndWraps(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackA, threeTracks(), "")

	for _, want := range []catalog.Track{trackB, trackC, trackA} {
		s.PlayNext()
		waitFor(t, func() bool {
			cur := s.CurrentTrack()
			return cur != nil && cur.ID == want.ID && m.LoadedURL() == want.MediaURL
		}, "PlayNext did not reach "+want.Title)
	}
}

func TestPlayNext_EmptyQueue(t *testing.T) {
	s, m := newTestSession(t)

	s.PlayNext()
	time.Sleep(20 * time.Millisecond)

	if len(m.LoadCalls) != 0 {
		t.Errorf("LoadCalls = %v, want none", m.LoadCalls)
	}
}

func TestPlayPrevious_RestartsAfterThreshold(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackB, threeTracks(), "")
	m.SetPosition(5.0)

	s.PlayPrevious()
	waitFor(t, func() bool { return len(m.SeekCalls) > 0 }, "restart never seeked")

	if m.SeekCalls[len(m.SeekCalls)-1] != 0 {
		t.Errorf("seek = %v, want 0", m.SeekCalls[len(m.SeekCalls)-1])
	}
	cur := s.CurrentTrack()
	if cur == nil || cur.ID != trackB.ID {
		t.Errorf("current track changed, want %v", trackB.ID)
	}
	if len(m.LoadCalls) != 1 {
		t.Errorf("LoadCalls = %d, want 1 (restart without reload)", len(m.LoadCalls))
	}
}

func TestPlayPrevious_MovesBackEarly(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackB, threeTracks(), "")
	m.SetPosition(1.0)

	s.PlayPrevious()
	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == trackA.ID
	}, "PlayPrevious did not move back")
}

func TestPlayPrevious_WrapsFromFirst(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackA, threeTracks(), "")
	m.SetPosition(1.0)

	s.PlayPrevious()
	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == trackC.ID
	}, "PlayPrevious did not wrap to the end")
}

func TestShuffle_SingleTrackQueue(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackA, []catalog.Track{trackA}, "")
	s.ToggleShuffle()

	s.PlayNext()
	waitFor(t, func() bool { return len(m.LoadCalls) == 2 }, "single-entry advance never replayed")

	cur := s.CurrentTrack()
	if cur == nil || cur.ID != trackA.ID {
		t.Errorf("current track = %+v, want %v", cur, trackA.ID)
	}
}

func TestShuffle_NeverRepeatsCurrent(t *testing.T) {
	s, _ := newTestSession(t)
	playAndWait(t, s, trackA, threeTracks(), "")
	s.ToggleShuffle()

	prev := s.CurrentTrack().ID
	for i := 0; i < 20; i++ {
		s.PlayNext()
		waitFor(t, func() bool {
			cur := s.CurrentTrack()
			return cur != nil && cur.ID != prev
		}, "shuffle advance never settled")

		cur := s.CurrentTrack().ID
		if cur == prev {
			t.Fatalf("shuffle repeated track %d at step %d", cur, i)
		}
		prev = cur
	}
}

func TestTrackEnded_AdvancesQueue(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackA, threeTracks(), "")

	m.TriggerEnded()
	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == trackB.ID && s.IsPlaying()
	}, "end of track did not advance")
}

func TestTrackEnded_RepeatRestartsTrack(t *testing.T) {
	s, m := newTestSession(t)
	s.ToggleRepeat()
	playAndWait(t, s, trackA, threeTracks(), "")
	m.SetPosition(42)

	m.TriggerEnded()
	waitFor(t, func() bool { return len(m.SeekCalls) > 0 && s.IsPlaying() }, "repeat never restarted")

	if m.SeekCalls[len(m.SeekCalls)-1] != 0 {
		t.Errorf("seek = %v, want 0", m.SeekCalls[len(m.SeekCalls)-1])
	}
	cur := s.CurrentTrack()
	if cur == nil || cur.ID != trackA.ID {
		t.Errorf("current track changed under repeat")
	}
	if len(m.LoadCalls) != 1 {
		t.Errorf("LoadCalls = %d, want 1", len(m.LoadCalls))
	}
}

func TestSeekTo_NoCurrentTrack(t *testing.T) {
	s, m := newTestSession(t)

	s.SeekTo(30)

	if len(m.SeekCalls) != 0 {
		t.Errorf("SeekCalls = %v, want none", m.SeekCalls)
	}
}

func TestSeekTo_MovesPosition(t *testing.T) {
	s, m := newTestSession(t)
	m.SetTrackDuration(trackA.MediaURL, 180)
	playAndWait(t, s, trackA, threeTracks(), "")

	s.SeekTo(30)

	if got := m.Position(); got != 30 {
		t.Errorf("Position() = %v, want 30", got)
	}
}

func TestSetVolume_ClampsAndApplies(t *testing.T) {
	s, m := newTestSession(t)

	s.SetVolume(1.5)
	if got := s.Snapshot().Volume; got != 1 {
		t.Errorf("Volume = %v, want 1", got)
	}
	if got := m.Gain(); got != 1 {
		t.Errorf("gain = %v, want 1", got)
	}

	s.SetVolume(-0.2)
	if got := s.Snapshot().Volume; got != 0 {
		t.Errorf("Volume = %v, want 0", got)
	}
}

func TestSetVolume_PositiveClearsMute(t *testing.T) {
	s, m := newTestSession(t)
	s.ToggleMute()

	s.SetVolume(0.5)

	state := s.Snapshot()
	if state.Muted {
		t.Error("still muted after raising volume")
	}
	if state.Volume != 0.5 {
		t.Errorf("Volume = %v, want 0.5", state.Volume)
	}
	if got := m.Gain(); got != 0.5 {
		t.Errorf("gain = %v, want 0.5", got)
	}
}

func TestSetVolume_ZeroKeepsMute(t *testing.T) {
	s, m := newTestSession(t)
	s.ToggleMute()

	s.SetVolume(0)

	if !s.Snapshot().Muted {
		t.Error("mute cleared by setting volume to zero")
	}
	if got := m.Gain(); got != 0 {
		t.Errorf("gain = %v, want 0", got)
	}
}

func TestToggleMute_RoundTrip(t *testing.T) {
	s, m := newTestSession(t)
	s.SetVolume(0.4)

	s.ToggleMute()
	state := s.Snapshot()
	if !state.Muted {
		t.Fatal("not muted after toggle")
	}
	if state.Volume != 0.4 {
		t.Errorf("stored volume = %v, want 0.4", state.Volume)
	}
	if got := m.Gain(); got != 0 {
		t.Errorf("gain = %v, want 0", got)
	}

	s.ToggleMute()
	state = s.Snapshot()
	if state.Muted {
		t.Fatal("still muted after second toggle")
	}
	if state.Volume != 0.4 {
		t.Errorf("restored volume = %v, want 0.4", state.Volume)
	}
	if got := m.Gain(); got != 0.4 {
		t.Errorf("gain = %v, want 0.4", got)
	}
}

func TestSetPlaybackRate_Clamps(t *testing.T) {
	s, m := newTestSession(t)

	cases := []struct {
		in, want float64
	}{
		{3.0, 2.0},
		{0.1, 0.25},
		{-1, 0.25},
		{1.5, 1.5},
	}
	for _, tc := range cases {
		s.SetPlaybackRate(tc.in)
		if got := s.Snapshot().Rate; got != tc.want {
			t.Errorf("SetPlaybackRate(%v): Rate = %v, want %v", tc.in, got, tc.want)
		}
		if got := m.Rate(); got != tc.want {
			t.Errorf("SetPlaybackRate(%v): device rate = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSetPlaylist_WhilePlayingKeepsCurrent(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackB, threeTracks(), "")
	loads := len(m.LoadCalls)

	s.SetPlaylist([]catalog.Track{trackD, trackB, trackC}, "playlist: evening")

	state := s.Snapshot()
	if state.CurrentTrack == nil || state.CurrentTrack.ID != trackB.ID {
		t.Errorf("current track = %+v, want %v", state.CurrentTrack, trackB.ID)
	}
	if !state.Playing {
		t.Error("playback stopped by queue replacement")
	}
	if state.QueueIndex != 1 {
		t.Errorf("QueueIndex = %d, want 1", state.QueueIndex)
	}
	if len(m.LoadCalls) != loads {
		t.Errorf("queue replacement reloaded the device")
	}
}

func TestSetPlaylist_WhileIdleStagesFirst(t *testing.T) {
	s, m := newTestSession(t)

	s.SetPlaylist(threeTracks(), "playlist: morning")
	waitFor(t, func() bool { return m.LoadedURL() == trackA.MediaURL }, "first track never staged")

	state := s.Snapshot()
	if state.CurrentTrack == nil || state.CurrentTrack.ID != trackA.ID {
		t.Errorf("current track = %+v, want %v", state.CurrentTrack, trackA.ID)
	}
	if state.Playing {
		t.Error("staging started playback")
	}
	if m.StartCount != 0 {
		t.Errorf("StartCount = %d, want 0", m.StartCount)
	}
}

func TestSetPlaylist_EmptyWhilePlayingKeepsCurrent(t *testing.T) {
	s, m := newTestSession(t)
	playAndWait(t, s, trackB, threeTracks(), "")
	loads := len(m.LoadCalls)

	s.SetPlaylist(nil, "")

	state := s.Snapshot()
	if state.CurrentTrack == nil || state.CurrentTrack.ID != trackB.ID {
		t.Errorf("current track = %+v, want %v", state.CurrentTrack, trackB.ID)
	}
	if !state.Playing {
		t.Error("playback stopped by queue replacement")
	}
	if len(state.Queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(state.Queue))
	}
	if len(m.LoadCalls) != loads {
		t.Errorf("queue replacement reloaded the device")
	}
}

func TestSetPlaylist_EmptyClearsWhileIdle(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetPlaylist(threeTracks(), "")
	waitFor(t, func() bool { return s.CurrentTrack() != nil }, "first track never staged")

	s.SetPlaylist(nil, "")

	if s.CurrentTrack() != nil {
		t.Error("current track survived empty queue replacement")
	}
}

func TestNotify_SubsystemEvents(t *testing.T) {
	s, _ := newTestSession(t)

	var mu sync.Mutex
	seen := make(map[string]int)
	s.SetNotify(func(subsystem string) {
		mu.Lock()
		seen[subsystem]++
		mu.Unlock()
	})

	s.SetVolume(0.5)
	s.ToggleShuffle()

	mu.Lock()
	defer mu.Unlock()
	if seen["mixer"] == 0 {
		t.Error("no mixer notification for volume change")
	}
	if seen["options"] == 0 {
		t.Error("no options notification for shuffle change")
	}
}

func TestClose_ReleasesDevice(t *testing.T) {
	m := output.NewMock()
	s := New(m, nil, 0.7)
	s.Play(trackA, threeTracks(), "")
	waitFor(t, s.IsPlaying, "playback never started")

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if s.IsPlaying() {
		t.Error("IsPlaying() = true after Close")
	}
	if m.LoadedURL() != "" {
		t.Error("device source survived Close")
	}
}
