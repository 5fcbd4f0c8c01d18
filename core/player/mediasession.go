package player

import "sync"

// TransportAction is an OS-level transport command.
type TransportAction string

const (
	ActionPlay     TransportAction = "play"
	ActionPause    TransportAction = "pause"
	ActionNext     TransportAction = "next"
	ActionPrevious TransportAction = "previous"
)

// Metadata is what the now-playing surface displays.
type Metadata struct {
	Title      string
	Artist     string
	ArtworkURL string
}

// NowPlayingSurface abstracts the platform's lock-screen/notification
// media controls. A platform without the surface simply isn't given a
// bridge (NewBridge tolerates nil and degrades to a no-op).
type NowPlayingSurface interface {
	SetMetadata(meta Metadata)
	SetPlaybackState(playing bool)
	SetActionHandler(action TransportAction, handler func())
}

// Bridge projects controller state outward to a NowPlayingSurface and
// injects the surface's transport commands back into the controller.
// It holds nothing but the last values pushed, to skip redundant
// writes.
type Bridge struct {
	mu      sync.Mutex
	surface NowPlayingSurface
	ctrl    *Controller

	lastMeta    *Metadata
	lastPlaying *bool
}

// NewBridge wires a controller to a now-playing surface and registers
// the transport handlers. A nil surface yields a bridge whose methods
// all no-op.
func NewBridge(ctrl *Controller, surface NowPlayingSurface) *Bridge {
	b := &Bridge{surface: surface, ctrl: ctrl}
	if surface == nil {
		return b
	}

	surface.SetActionHandler(ActionPlay, func() {
		// Surface-initiated play is a user gesture; rejection is not
		// expected but still must not crash the bridge.
		_ = ctrl.Play()
	})
	surface.SetActionHandler(ActionPause, func() { ctrl.Pause() })
	surface.SetActionHandler(ActionNext, func() { _ = ctrl.Next() })
	surface.SetActionHandler(ActionPrevious, func() { _ = ctrl.Previous() })

	return b
}

// HandleTrackChange pushes the new track's metadata. Wire this to
// Events.OnTrackChange.
func (b *Bridge) HandleTrackChange(_ int, track *Track) {
	if b.surface == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if track == nil {
		b.lastMeta = nil
		b.surface.SetMetadata(Metadata{})
		return
	}
	meta := Metadata{
		Title:      track.Title,
		Artist:     track.Artist,
		ArtworkURL: track.CoverURL,
	}
	if b.lastMeta != nil && *b.lastMeta == meta {
		return // redundant write
	}
	b.lastMeta = &meta
	b.surface.SetMetadata(meta)
}

// HandleStateChange pushes play/pause transitions. Wire this to
// Events.OnStateChange. Buffering still projects as playing: the
// session's play intent hasn't changed.
func (b *Bridge) HandleStateChange(_, next State) {
	if b.surface == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	playing := next.PlayIntent()
	if b.lastPlaying != nil && *b.lastPlaying == playing {
		return
	}
	b.lastPlaying = &playing
	b.surface.SetPlaybackState(playing)
}
