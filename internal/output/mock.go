package output

import "sync"

// Mock is an in-memory Device for tests. It records transport calls and
// lets tests script load/start failures, positions, durations, graph
// suspension, and natural end-of-track events.
type Mock struct {
	mu sync.Mutex

	loadedURL string
	playing   bool
	position  float64
	duration  float64
	gain      float64
	rate      float64
	suspended bool
	onEnded   func()

	loadErr  error
	startErr error
	loadGate chan struct{}

	// Per-URL durations applied on Load
	durations map[string]float64

	// Call records
	LoadCalls  []string
	StartCount int
	PauseCount int
	SeekCalls  []float64
}

// NewMock creates a mock device
func NewMock() *Mock {
	return &Mock{
		gain:      1.0,
		rate:      1.0,
		durations: make(map[string]float64),
	}
}

func (m *Mock) Load(mediaURL string) error {
	m.mu.Lock()
	gate := m.loadGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCalls = append(m.LoadCalls, mediaURL)
	if m.loadErr != nil {
		return m.loadErr
	}

	m.loadedURL = mediaURL
	m.playing = false
	m.position = 0
	m.duration = m.durations[mediaURL]
	return nil
}

func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartCount++
	if m.loadedURL == "" {
		return ErrNoSource
	}
	if m.startErr != nil {
		return m.startErr
	}
	m.playing = true
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PauseCount++
	m.playing = false
}

func (m *Mock) SeekTo(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadedURL == "" {
		return ErrNoSource
	}
	if seconds < 0 {
		seconds = 0
	}
	if m.duration > 0 && seconds > m.duration {
		seconds = m.duration
	}
	m.SeekCalls = append(m.SeekCalls, seconds)
	m.position = seconds
	return nil
}

func (m *Mock) SetGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	m.gain = gain
}

func (m *Mock) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *Mock) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

func (m *Mock) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
	return nil
}

func (m *Mock) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = false
	return nil
}

func (m *Mock) SetOnEnded(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnded = fn
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadedURL = ""
	m.playing = false
	return nil
}

// Test helpers

// SetLoadErr scripts the error returned by subsequent Load calls
func (m *Mock) SetLoadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetStartErr scripts the error returned by subsequent Start calls
func (m *Mock) SetStartErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetPosition moves the simulated playback position
func (m *Mock) SetPosition(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = seconds
}

// SetTrackDuration sets the duration reported after loading the given URL
func (m *Mock) SetTrackDuration(mediaURL string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[mediaURL] = seconds
}

// SetLoadGate makes subsequent Load calls block until the gate channel
// is closed, letting tests hold several loads in flight at once
func (m *Mock) SetLoadGate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadGate = gate
}

// SetSuspended forces the audio graph suspension state
func (m *Mock) SetSuspended(suspended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = suspended
}

// Playing reports whether the device is currently playing
func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// LoadedURL returns the media URL of the loaded source
func (m *Mock) LoadedURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadedURL
}

// Gain returns the last applied effective output gain
func (m *Mock) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Rate returns the last applied playback rate
func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// TriggerEnded simulates natural completion of the loaded source
func (m *Mock) TriggerEnded() {
	m.mu.Lock()
	m.playing = false
	fn := m.onEnded
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

var _ Device = (*Mock)(nil)
