package player

import "errors"

var (
	// ErrPlaybackRejected reports that the media backend refused an
	// unsolicited play command (platform autoplay policy). The
	// controller falls back to Paused; retry with a user gesture.
	ErrPlaybackRejected = errors.New("playback rejected by platform policy")

	// ErrNoSource reports an operation that needs a loaded source
	// (seek, resume) while nothing is loaded.
	ErrNoSource = errors.New("no source loaded")

	// ErrBadIndex reports a track index outside the catalog.
	ErrBadIndex = errors.New("track index out of range")
)

// AudioBackend abstracts the native media element the controller
// drives. Implementations deliver their events by calling the
// controller's On* methods (HandleTimeUpdate and friends) from
// whatever loop they run on; the controller serializes internally.
type AudioBackend interface {
	// Load tears down any current source and assigns a new one.
	Load(url string)
	// Play starts or resumes playback. A platform may reject the
	// command; that surfaces as a non-nil error.
	Play() error
	Pause()
	Seek(seconds float64)
	SetVolume(v float64)
	SetMuted(muted bool)
	// Stop releases the backend's resources for the current source.
	Stop()
}

// Events are the controller's outbound notifications. Any field may be
// nil. Callbacks run while the controller lock is held, so they must
// not call back into the controller; hand off to a channel or
// goroutine for anything heavier than bookkeeping.
type Events struct {
	// OnTrackChange fires when the current track changes (including
	// to nil when the catalog empties).
	OnTrackChange func(index int, track *Track)
	// OnStateChange fires on every state transition.
	OnStateChange func(old, new State)
	// OnProgress fires on time/duration updates.
	OnProgress func(position, duration float64)
	// OnListenStart fires exactly once per transition into audible
	// playback from a stopped or ended source. Resuming from pause or
	// recovering from buffering does not re-fire it.
	OnListenStart func(track *Track)
	// OnError fires for recoverable backend errors.
	OnError func(err error)
}
