package output

import (
	"errors"
	"testing"
)

func TestMock_TransportLifecycle(t *testing.T) {
	m := NewMock()

	if err := m.Start(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Start() without source = %v, want ErrNoSource", err)
	}

	if err := m.Load("https://cdn.test/a.mp3"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Playing() {
		t.Error("Playing() = true before Start")
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !m.Playing() {
		t.Error("Playing() = false after Start")
	}

	m.Pause()
	if m.Playing() {
		t.Error("Playing() = true after Pause")
	}
}

func TestMock_SeekClampsToDuration(t *testing.T) {
	m := NewMock()
	m.SetTrackDuration("https://cdn.test/a.mp3", 100)
	if err := m.Load("https://cdn.test/a.mp3"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if err := m.SeekTo(250); err != nil {
		t.Fatalf("SeekTo() error: %v", err)
	}
	if got := m.Position(); got != 100 {
		t.Errorf("Position() = %v, want clamped 100", got)
	}

	if err := m.SeekTo(-5); err != nil {
		t.Fatalf("SeekTo() error: %v", err)
	}
	if got := m.Position(); got != 0 {
		t.Errorf("Position() = %v, want 0", got)
	}
}

func TestMock_TriggerEnded(t *testing.T) {
	m := NewMock()
	ended := false
	m.SetOnEnded(func() { ended = true })

	if err := m.Load("https://cdn.test/a.mp3"); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	m.TriggerEnded()

	if !ended {
		t.Error("onEnded callback not invoked")
	}
	if m.Playing() {
		t.Error("Playing() = true after TriggerEnded")
	}
}
