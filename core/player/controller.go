package player

import (
	"sync"
)

// State is the playback controller's tagged state. Transitions go
// through the controller only, so flag combinations that make no
// sense (buffering while idle, ended without a source) cannot be
// represented.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// PlayIntent reports whether playback has been requested and not
// paused or stopped. Buffering and loading count: audio is not
// flowing, but the session is logically playing.
func (s State) PlayIntent() bool {
	return s == StateLoading || s == StatePlaying || s == StateBuffering
}

// Track is the controller's view of one catalog entry.
type Track struct {
	ID       int64
	Title    string
	Artist   string
	AudioURL string
	CoverURL string
}

// Controller owns the answer to "what track, what state" for one
// playback session. It issues commands to a single AudioBackend and
// digests that backend's events; everything else observes it through
// Events.
type Controller struct {
	mu sync.Mutex

	backend AudioBackend
	events  Events

	catalog  []Track
	index    int
	state    State
	position float64
	duration float64
	volume   float64
	muted    bool

	// listenFired marks that the current source already produced its
	// listen-start edge. Reset on source change and on natural end so
	// a replay counts again, but a pause/resume does not.
	listenFired bool
}

// NewController creates a Controller over the given backend.
func NewController(backend AudioBackend, events Events) *Controller {
	return &Controller{
		backend: backend,
		events:  events,
		state:   StateIdle,
		index:   -1,
		volume:  1.0,
	}
}

// SetCatalog replaces the track list the controller indexes into. If
// the current track disappears (admin deleted it, catalog emptied),
// playback stops and the current track becomes nil.
func (c *Controller) SetCatalog(tracks []Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var currentID int64 = -1
	if t := c.currentLocked(); t != nil {
		currentID = t.ID
	}

	c.catalog = tracks

	if currentID >= 0 {
		for i := range tracks {
			if tracks[i].ID == currentID {
				c.index = i
				return
			}
		}
	}

	// Current track is gone. Stop and clear.
	if c.state != StateIdle {
		c.backend.Stop()
		c.setStateLocked(StateIdle)
	}
	c.index = -1
	c.position = 0
	c.duration = 0
	c.listenFired = false
	if c.events.OnTrackChange != nil {
		c.events.OnTrackChange(-1, nil)
	}
}

// Current returns the current track, or nil when none is selected.
func (c *Controller) Current() *Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() *Track {
	if c.index < 0 || c.index >= len(c.catalog) {
		return nil
	}
	t := c.catalog[c.index]
	return &t
}

// Index returns the current track index, -1 when none.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// CurrentState returns the tagged playback state.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsPlaying reports play intent (see State.PlayIntent).
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.PlayIntent()
}

// PlayAt loads the track at index and starts playback. Selecting the
// already-current track resumes instead of reloading.
func (c *Controller) PlayAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.catalog) {
		return ErrBadIndex
	}
	if index == c.index && c.state != StateIdle && c.state != StateEnded {
		return c.resumeLocked()
	}
	return c.loadAndPlayLocked(index)
}

// Play starts or resumes the current selection. With no track selected
// it is ErrNoSource. A selection that is not loaded (stepped to while
// stopped, or a source that already ended) loads and plays from the
// top, which is a fresh listen.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentLocked() == nil {
		return ErrNoSource
	}
	if c.state == StateIdle || c.state == StateEnded {
		return c.loadAndPlayLocked(c.index)
	}
	return c.resumeLocked()
}

// Pause issues a pause command. Always succeeds; pausing an idle
// controller is a no-op.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || c.state == StateEnded {
		return
	}
	c.backend.Pause()
	c.setStateLocked(StatePaused)
}

// Seek moves the play position, clamped to [0, duration]. Only valid
// with a loaded source.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentLocked() == nil || c.state == StateIdle {
		return ErrNoSource
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.backend.Seek(seconds)
	c.position = seconds
	c.notifyProgressLocked()
	return nil
}

// SetVolume applies a session volume in [0,1]; out-of-range values
// are clamped.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.volume = v
	c.backend.SetVolume(v)
}

// SetMuted applies the session mute flag.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	c.backend.SetMuted(muted)
}

// Volume returns the session volume.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Muted returns the session mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Next advances to (index+1) mod N. On an empty catalog it is a
// no-op. If playback was in progress the next track starts playing.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepLocked(1)
}

// Previous steps to (index-1+N) mod N; no-op on an empty catalog.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepLocked(-1)
}

func (c *Controller) stepLocked(delta int) error {
	n := len(c.catalog)
	if n == 0 {
		return nil // tolerate empty catalog, current stays nil
	}
	next := c.index
	if next < 0 {
		next = 0
	} else {
		next = (next + delta + n) % n
	}

	if c.state.PlayIntent() {
		return c.loadAndPlayLocked(next)
	}
	// Not playing: just move the selection.
	c.index = next
	c.position = 0
	c.duration = 0
	c.listenFired = false
	if c.state != StateIdle {
		c.backend.Stop()
		c.setStateLocked(StateIdle)
	}
	if c.events.OnTrackChange != nil {
		c.events.OnTrackChange(c.index, c.currentLocked())
	}
	return nil
}

// loadAndPlayLocked tears down the current source, assigns the track
// at index, and issues the play command.
func (c *Controller) loadAndPlayLocked(index int) error {
	if index < 0 || index >= len(c.catalog) {
		return ErrBadIndex
	}

	if c.state != StateIdle {
		c.backend.Stop()
	}

	c.index = index
	c.position = 0
	c.duration = 0
	c.listenFired = false

	track := c.catalog[index]
	c.setStateLocked(StateLoading)
	c.backend.Load(track.AudioURL)
	if c.events.OnTrackChange != nil {
		c.events.OnTrackChange(index, &track)
	}

	return c.issuePlayLocked()
}

// resumeLocked resumes the current source without reloading it. No
// listen edge fires here.
func (c *Controller) resumeLocked() error {
	switch c.state {
	case StatePlaying, StateBuffering:
		return nil // already playing
	case StateIdle:
		return ErrNoSource
	}
	return c.issuePlayLocked()
}

// issuePlayLocked sends the play command and settles the state. A
// rejected play is recoverable: state falls back to Paused and the
// caller gets ErrPlaybackRejected to surface a retry prompt.
func (c *Controller) issuePlayLocked() error {
	// The source is fresh until one play command actually succeeds.
	// That makes a retry after an autoplay rejection count as the
	// first listen, while a pause/resume never re-counts.
	fresh := !c.listenFired

	if err := c.backend.Play(); err != nil {
		c.setStateLocked(StatePaused)
		if c.events.OnError != nil {
			c.events.OnError(ErrPlaybackRejected)
		}
		return ErrPlaybackRejected
	}

	c.setStateLocked(StatePlaying)

	if fresh {
		c.listenFired = true
		if c.events.OnListenStart != nil {
			c.events.OnListenStart(c.currentLocked())
		}
	}
	return nil
}

func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	old := c.state
	c.state = next
	if c.events.OnStateChange != nil {
		c.events.OnStateChange(old, next)
	}
}

func (c *Controller) notifyProgressLocked() {
	if c.events.OnProgress != nil {
		c.events.OnProgress(c.position, c.duration)
	}
}

// HandleTimeUpdate digests a backend time event.
func (c *Controller) HandleTimeUpdate(position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.notifyProgressLocked()
}

// HandleDurationKnown digests the backend's duration report.
func (c *Controller) HandleDurationKnown(duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = duration
	c.notifyProgressLocked()
}

// HandleBuffering marks starvation. Play intent is unchanged, but the
// session is not audibly playing, so no listen edge can fire out of
// this state.
func (c *Controller) HandleBuffering() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		c.setStateLocked(StateBuffering)
	}
}

// HandleResumed marks the end of a buffering stall.
func (c *Controller) HandleResumed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBuffering {
		c.setStateLocked(StatePlaying)
	}
}

// HandleEnded digests a natural end-of-track: advance to the next
// track (wrapping) and keep playing. A single-track catalog replays
// the same track, which is a fresh listen.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setStateLocked(StateEnded)
	c.listenFired = false

	n := len(c.catalog)
	if n == 0 {
		c.index = -1
		c.setStateLocked(StateIdle)
		return
	}
	next := (c.index + 1 + n) % n
	if err := c.loadAndPlayLocked(next); err != nil && c.events.OnError != nil {
		c.events.OnError(err)
	}
}

// HandleError digests a backend error: recoverable, playback falls
// back to Paused.
func (c *Controller) HandleError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	c.setStateLocked(StatePaused)
	if c.events.OnError != nil {
		c.events.OnError(err)
	}
}

// Close stops playback and releases the backend's resources.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.backend.Stop()
		c.setStateLocked(StateIdle)
	}
	c.index = -1
	c.listenFired = false
}

// Snapshot captures the ephemeral session state.
type Snapshot struct {
	Index     int
	TrackID   int64
	State     State
	IsPlaying bool
	Position  float64
	Duration  float64
	Volume    float64
	Muted     bool
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var trackID int64 = -1
	if t := c.currentLocked(); t != nil {
		trackID = t.ID
	}
	return Snapshot{
		Index:     c.index,
		TrackID:   trackID,
		State:     c.state,
		IsPlaying: c.state.PlayIntent(),
		Position:  c.position,
		Duration:  c.duration,
		Volume:    c.volume,
		Muted:     c.muted,
	}
}
