package player

import (
	"errors"
	"testing"
)

// fakeBackend records commands and can be told to reject play.
type fakeBackend struct {
	loaded     []string
	playCalls  int
	pauseCalls int
	stopCalls  int
	seekedTo   float64
	volume     float64
	muted      bool

	rejectPlays int // reject this many play commands, then succeed
}

func (b *fakeBackend) Load(url string) { b.loaded = append(b.loaded, url) }

func (b *fakeBackend) Play() error {
	b.playCalls++
	if b.rejectPlays > 0 {
		b.rejectPlays--
		return errors.New("autoplay blocked")
	}
	return nil
}

func (b *fakeBackend) Pause()               { b.pauseCalls++ }
func (b *fakeBackend) Seek(seconds float64) { b.seekedTo = seconds }
func (b *fakeBackend) SetVolume(v float64)  { b.volume = v }
func (b *fakeBackend) SetMuted(m bool)      { b.muted = m }
func (b *fakeBackend) Stop()                { b.stopCalls++ }

func testCatalog(n int) []Track {
	tracks := make([]Track, n)
	for i := range tracks {
		tracks[i] = Track{
			ID:       int64(i + 1),
			Title:    "Track",
			AudioURL: "/media/audio/t",
		}
	}
	return tracks
}

func TestControllerNavigation(t *testing.T) {
	t.Run("next wraps around the catalog", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewController(backend, Events{})
		c.SetCatalog(testCatalog(3))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 0; i < 3; i++ {
			if err := c.Next(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if got := c.Index(); got != 0 {
			t.Errorf("expected index 0 after wrapping, got %d", got)
		}
	})

	t.Run("previous from the first track wraps to the last", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewController(backend, Events{})
		c.SetCatalog(testCatalog(3))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := c.Previous(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := c.Index(); got != 2 {
			t.Errorf("expected index 2, got %d", got)
		}
	})

	t.Run("navigation on an empty catalog is a no-op", func(t *testing.T) {
		c := NewController(&fakeBackend{}, Events{})

		if err := c.Next(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := c.Previous(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if c.Current() != nil {
			t.Error("expected no current track")
		}
		if got := c.CurrentState(); got != StateIdle {
			t.Errorf("expected idle, got %s", got)
		}
	})

	t.Run("step while paused moves selection without playing", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewController(backend, Events{})
		c.SetCatalog(testCatalog(3))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.Pause()
		plays := backend.playCalls

		if err := c.Next(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := c.Index(); got != 1 {
			t.Errorf("expected index 1, got %d", got)
		}
		if backend.playCalls != plays {
			t.Errorf("expected no play command, got %d extra", backend.playCalls-plays)
		}
		if got := c.CurrentState(); got != StateIdle {
			t.Errorf("expected idle after paused step, got %s", got)
		}
	})

	t.Run("bad index is rejected", func(t *testing.T) {
		c := NewController(&fakeBackend{}, Events{})
		c.SetCatalog(testCatalog(2))
		if err := c.PlayAt(5); !errors.Is(err, ErrBadIndex) {
			t.Errorf("expected ErrBadIndex, got %v", err)
		}
	})
}

func TestControllerAutoAdvance(t *testing.T) {
	t.Run("ended track advances to the next and keeps playing", func(t *testing.T) {
		backend := &fakeBackend{}
		var listens []int64
		c := NewController(backend, Events{
			OnListenStart: func(track *Track) { listens = append(listens, track.ID) },
		})
		c.SetCatalog(testCatalog(3))

		if err := c.PlayAt(2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.HandleEnded()

		if got := c.Index(); got != 0 {
			t.Errorf("expected wrap to index 0, got %d", got)
		}
		if got := c.CurrentState(); got != StatePlaying {
			t.Errorf("expected playing, got %s", got)
		}
		if len(listens) != 2 || listens[0] != 3 || listens[1] != 1 {
			t.Errorf("expected listens for tracks 3 then 1, got %v", listens)
		}
	})

	t.Run("single-track catalog replays and counts again", func(t *testing.T) {
		backend := &fakeBackend{}
		listens := 0
		c := NewController(backend, Events{
			OnListenStart: func(*Track) { listens++ },
		})
		c.SetCatalog(testCatalog(1))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.HandleEnded()

		if got := c.Index(); got != 0 {
			t.Errorf("expected index 0, got %d", got)
		}
		if listens != 2 {
			t.Errorf("expected 2 listens, got %d", listens)
		}
	})
}

func TestControllerListenEdge(t *testing.T) {
	t.Run("pause and resume does not re-fire", func(t *testing.T) {
		backend := &fakeBackend{}
		listens := 0
		c := NewController(backend, Events{
			OnListenStart: func(*Track) { listens++ },
		})
		c.SetCatalog(testCatalog(2))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.Pause()
		if err := c.Play(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if listens != 1 {
			t.Errorf("expected 1 listen, got %d", listens)
		}
	})

	t.Run("buffering stall does not re-fire", func(t *testing.T) {
		backend := &fakeBackend{}
		listens := 0
		c := NewController(backend, Events{
			OnListenStart: func(*Track) { listens++ },
		})
		c.SetCatalog(testCatalog(1))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.HandleBuffering()
		if got := c.CurrentState(); got != StateBuffering {
			t.Fatalf("expected buffering, got %s", got)
		}
		c.HandleResumed()
		if got := c.CurrentState(); got != StatePlaying {
			t.Fatalf("expected playing, got %s", got)
		}
		if listens != 1 {
			t.Errorf("expected 1 listen, got %d", listens)
		}
	})

	t.Run("play after a paused step loads the new selection", func(t *testing.T) {
		backend := &fakeBackend{}
		var listens []int64
		c := NewController(backend, Events{
			OnListenStart: func(track *Track) { listens = append(listens, track.ID) },
		})
		c.SetCatalog(testCatalog(3))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.Pause()
		if err := c.Next(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The selection moved while stopped; play must load it, not
		// report a missing source.
		if err := c.Play(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := c.CurrentState(); got != StatePlaying {
			t.Errorf("expected playing, got %s", got)
		}
		if got := c.Index(); got != 1 {
			t.Errorf("expected index 1, got %d", got)
		}
		if len(listens) != 2 || listens[1] != 2 {
			t.Errorf("expected a fresh listen for track 2, got %v", listens)
		}
	})

	t.Run("rejected play falls back to paused, retry counts the listen", func(t *testing.T) {
		backend := &fakeBackend{rejectPlays: 1}
		listens := 0
		var seen []error
		c := NewController(backend, Events{
			OnListenStart: func(*Track) { listens++ },
			OnError:       func(err error) { seen = append(seen, err) },
		})
		c.SetCatalog(testCatalog(1))

		if err := c.PlayAt(0); !errors.Is(err, ErrPlaybackRejected) {
			t.Fatalf("expected ErrPlaybackRejected, got %v", err)
		}
		if got := c.CurrentState(); got != StatePaused {
			t.Errorf("expected paused, got %s", got)
		}
		if listens != 0 {
			t.Errorf("expected no listen after rejection, got %d", listens)
		}
		if len(seen) != 1 || !errors.Is(seen[0], ErrPlaybackRejected) {
			t.Errorf("expected one ErrPlaybackRejected via OnError, got %v", seen)
		}

		// User gesture retry.
		if err := c.Play(); err != nil {
			t.Fatalf("unexpected error on retry: %v", err)
		}
		if got := c.CurrentState(); got != StatePlaying {
			t.Errorf("expected playing, got %s", got)
		}
		if listens != 1 {
			t.Errorf("expected 1 listen after retry, got %d", listens)
		}
	})
}

func TestControllerSeek(t *testing.T) {
	t.Run("clamps into the track", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewController(backend, Events{})
		c.SetCatalog(testCatalog(1))

		if err := c.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.HandleDurationKnown(180)

		if err := c.Seek(-5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backend.seekedTo != 0 {
			t.Errorf("expected seek clamped to 0, got %v", backend.seekedTo)
		}

		if err := c.Seek(500); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backend.seekedTo != 180 {
			t.Errorf("expected seek clamped to 180, got %v", backend.seekedTo)
		}
	})

	t.Run("seek without a source is rejected", func(t *testing.T) {
		c := NewController(&fakeBackend{}, Events{})
		if err := c.Seek(10); !errors.Is(err, ErrNoSource) {
			t.Errorf("expected ErrNoSource, got %v", err)
		}
	})
}

func TestControllerVolume(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, Events{})

	c.SetVolume(1.7)
	if got := c.Volume(); got != 1 {
		t.Errorf("expected volume clamped to 1, got %v", got)
	}
	c.SetVolume(-0.2)
	if got := c.Volume(); got != 0 {
		t.Errorf("expected volume clamped to 0, got %v", got)
	}

	c.SetMuted(true)
	if !c.Muted() {
		t.Error("expected muted")
	}
	if !backend.muted {
		t.Error("expected mute forwarded to backend")
	}
}

func TestControllerSetCatalog(t *testing.T) {
	t.Run("current track survives a reorder", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewController(backend, Events{})
		tracks := testCatalog(3)
		c.SetCatalog(tracks)

		if err := c.PlayAt(1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reordered := []Track{tracks[2], tracks[0], tracks[1]}
		c.SetCatalog(reordered)

		if got := c.Index(); got != 2 {
			t.Errorf("expected index 2 after reorder, got %d", got)
		}
		if got := c.CurrentState(); got != StatePlaying {
			t.Errorf("expected playback undisturbed, got %s", got)
		}
	})

	t.Run("removing the current track stops playback", func(t *testing.T) {
		backend := &fakeBackend{}
		var changes []int
		c := NewController(backend, Events{
			OnTrackChange: func(index int, _ *Track) { changes = append(changes, index) },
		})
		tracks := testCatalog(3)
		c.SetCatalog(tracks)

		if err := c.PlayAt(1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c.SetCatalog([]Track{tracks[0], tracks[2]})

		if c.Current() != nil {
			t.Error("expected no current track")
		}
		if got := c.CurrentState(); got != StateIdle {
			t.Errorf("expected idle, got %s", got)
		}
		if len(changes) == 0 || changes[len(changes)-1] != -1 {
			t.Errorf("expected a final track change to -1, got %v", changes)
		}
		if backend.stopCalls == 0 {
			t.Error("expected the backend to be stopped")
		}
	})
}

func TestSnapshot(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, Events{})
	c.SetCatalog(testCatalog(2))

	if err := c.PlayAt(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.HandleDurationKnown(200)
	c.HandleTimeUpdate(42.5)

	snap := c.Snapshot()
	if snap.Index != 1 || snap.TrackID != 2 {
		t.Errorf("expected index 1 track 2, got index %d track %d", snap.Index, snap.TrackID)
	}
	if !snap.IsPlaying || snap.State != StatePlaying {
		t.Errorf("expected a playing snapshot, got %s", snap.State)
	}
	if snap.Position != 42.5 || snap.Duration != 200 {
		t.Errorf("expected position 42.5/200, got %v/%v", snap.Position, snap.Duration)
	}
}
