package player

import "testing"

type fakeSurface struct {
	metadata   []Metadata
	playStates []bool
	handlers   map[TransportAction]func()
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{handlers: make(map[TransportAction]func())}
}

func (s *fakeSurface) SetMetadata(meta Metadata) { s.metadata = append(s.metadata, meta) }
func (s *fakeSurface) SetPlaybackState(p bool)   { s.playStates = append(s.playStates, p) }

func (s *fakeSurface) SetActionHandler(a TransportAction, h func()) {
	s.handlers[a] = h
}

func bridgedController(surface NowPlayingSurface) (*Controller, *Bridge, *fakeBackend) {
	backend := &fakeBackend{}
	var bridge *Bridge
	ctrl := NewController(backend, Events{
		OnTrackChange: func(index int, track *Track) { bridge.HandleTrackChange(index, track) },
		OnStateChange: func(old, next State) { bridge.HandleStateChange(old, next) },
	})
	bridge = NewBridge(ctrl, surface)
	return ctrl, bridge, backend
}

func TestBridgeMetadata(t *testing.T) {
	t.Run("track change pushes metadata once", func(t *testing.T) {
		surface := newFakeSurface()
		ctrl, _, _ := bridgedController(surface)
		ctrl.SetCatalog([]Track{
			{ID: 1, Title: "서늘한 온기", Artist: "Unframe", CoverURL: "/media/images/c1"},
			{ID: 2, Title: "푸른 잔향", Artist: "Unframe"},
		})

		if err := ctrl.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(surface.metadata) != 1 {
			t.Fatalf("expected 1 metadata push, got %d", len(surface.metadata))
		}
		got := surface.metadata[0]
		if got.Title != "서늘한 온기" || got.ArtworkURL != "/media/images/c1" {
			t.Errorf("unexpected metadata %+v", got)
		}
	})

	t.Run("redundant metadata is deduplicated", func(t *testing.T) {
		surface := newFakeSurface()
		_, bridge, _ := bridgedController(surface)

		track := &Track{ID: 1, Title: "오후의 도록", Artist: "Unframe"}
		bridge.HandleTrackChange(0, track)
		bridge.HandleTrackChange(0, track)

		if len(surface.metadata) != 1 {
			t.Errorf("expected 1 metadata push, got %d", len(surface.metadata))
		}
	})

	t.Run("catalog emptying clears metadata", func(t *testing.T) {
		surface := newFakeSurface()
		ctrl, _, _ := bridgedController(surface)
		ctrl.SetCatalog(testCatalog(1))

		if err := ctrl.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ctrl.SetCatalog(nil)

		last := surface.metadata[len(surface.metadata)-1]
		if last != (Metadata{}) {
			t.Errorf("expected empty metadata, got %+v", last)
		}
	})
}

func TestBridgePlaybackState(t *testing.T) {
	t.Run("buffering still projects as playing", func(t *testing.T) {
		surface := newFakeSurface()
		ctrl, _, _ := bridgedController(surface)
		ctrl.SetCatalog(testCatalog(1))

		if err := ctrl.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pushes := len(surface.playStates)

		ctrl.HandleBuffering()
		ctrl.HandleResumed()

		if len(surface.playStates) != pushes {
			t.Errorf("expected no extra playback-state pushes across a stall, got %d", len(surface.playStates)-pushes)
		}
	})

	t.Run("pause projects as not playing", func(t *testing.T) {
		surface := newFakeSurface()
		ctrl, _, _ := bridgedController(surface)
		ctrl.SetCatalog(testCatalog(1))

		if err := ctrl.PlayAt(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ctrl.Pause()

		last := surface.playStates[len(surface.playStates)-1]
		if last {
			t.Error("expected not-playing after pause")
		}
	})
}

func TestBridgeTransportActions(t *testing.T) {
	surface := newFakeSurface()
	ctrl, _, backend := bridgedController(surface)
	ctrl.SetCatalog(testCatalog(3))

	if err := ctrl.PlayAt(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	surface.handlers[ActionNext]()
	if got := ctrl.Index(); got != 1 {
		t.Errorf("expected index 1 after next, got %d", got)
	}

	surface.handlers[ActionPause]()
	if got := ctrl.CurrentState(); got != StatePaused {
		t.Errorf("expected paused, got %s", got)
	}
	if backend.pauseCalls == 0 {
		t.Error("expected pause forwarded to backend")
	}

	surface.handlers[ActionPlay]()
	if got := ctrl.CurrentState(); got != StatePlaying {
		t.Errorf("expected playing, got %s", got)
	}

	surface.handlers[ActionPrevious]()
	if got := ctrl.Index(); got != 0 {
		t.Errorf("expected index 0 after previous, got %d", got)
	}
}

func TestBridgeNilSurface(t *testing.T) {
	ctrl, bridge, _ := bridgedController(nil)
	ctrl.SetCatalog(testCatalog(1))

	// Must not panic.
	bridge.HandleTrackChange(0, &Track{ID: 1})
	bridge.HandleStateChange(StateIdle, StatePlaying)
}
