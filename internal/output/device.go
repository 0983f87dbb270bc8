// Package output abstracts the audio output element the playback session
// owns. Exactly one device exists per session lifetime; no other component
// may construct or close it.
package output

import "errors"

var (
	// ErrNoSource is returned by transport operations before any media
	// has been loaded.
	ErrNoSource = errors.New("no media loaded")
)

// Device defines the interface an audio output implementation must provide.
// All methods are safe for concurrent use.
type Device interface {
	// Source management
	Load(mediaURL string) error // Replace and reload the output source; resets position to 0

	// Transport control
	Start() error             // Begin or resume playback of the loaded source
	Pause()                   // Pause playback; synchronous, always succeeds
	SeekTo(seconds float64) error

	// Output shaping
	SetGain(gain float64) // Effective output gain in [0,1]; mute drives this to 0
	SetRate(rate float64) // Playback rate; persists across loads

	// State queries
	Position() float64 // Seconds into the loaded source
	Duration() float64 // Total seconds of the loaded source (0 until loaded)

	// Audio-graph suspension. Many environments suspend audio processing
	// until a user-initiated action; Resume is called before playback.
	Suspended() bool
	Suspend() error
	Resume() error

	// SetOnEnded registers the natural end-of-track callback
	SetOnEnded(fn func())

	// Close releases the output element
	Close() error
}
