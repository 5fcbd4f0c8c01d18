package engagement

import (
	"context"
	"testing"
	"time"

	"unframe/core/reward"
	"unframe/model"
)

type fakeProfileRepo struct {
	profiles map[int64]*model.UserProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[int64]*model.UserProfile)}
}

func (r *fakeProfileRepo) EnsureProfile(_ context.Context, userID int64, now time.Time) (*model.UserProfile, error) {
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	p := &model.UserProfile{UserID: userID, FirstJoin: now}
	r.profiles[userID] = p
	return p, nil
}

func (r *fakeProfileRepo) GetProfile(_ context.Context, userID int64) (*model.UserProfile, error) {
	return r.profiles[userID], nil
}

func (r *fakeProfileRepo) IncrementListenCount(_ context.Context, userID int64) error {
	r.profiles[userID].ListenCount++
	return nil
}

func (r *fakeProfileRepo) IncrementShareCount(_ context.Context, userID int64) error {
	r.profiles[userID].ShareCount++
	return nil
}

func (r *fakeProfileRepo) SetProfileImage(_ context.Context, userID int64, imageURL string) error {
	r.profiles[userID].ProfileImage = imageURL
	return nil
}

func (r *fakeProfileRepo) SetHasSeenOnboarding(_ context.Context, userID int64) error {
	r.profiles[userID].HasSeenOnboarding = true
	return nil
}

type likeKey struct{ userID, trackID int64 }

type fakeLikeRepo struct {
	likes map[likeKey]time.Time
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[likeKey]time.Time)}
}

func (r *fakeLikeRepo) ToggleLike(_ context.Context, userID, trackID int64, now time.Time) (bool, error) {
	k := likeKey{userID, trackID}
	if _, ok := r.likes[k]; ok {
		delete(r.likes, k)
		return false, nil
	}
	r.likes[k] = now
	return true, nil
}

func (r *fakeLikeRepo) GetLikesByUser(_ context.Context, userID int64) ([]*model.LikeRecord, error) {
	var out []*model.LikeRecord
	for k, at := range r.likes {
		if k.userID == userID {
			out = append(out, &model.LikeRecord{UserID: k.userID, TrackID: k.trackID, LikedAt: at})
		}
	}
	return out, nil
}

func (r *fakeLikeRepo) CountLikesByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for k := range r.likes {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeLikeRepo) IsLiked(_ context.Context, userID, trackID int64) (bool, error) {
	_, ok := r.likes[likeKey{userID, trackID}]
	return ok, nil
}

func (r *fakeLikeRepo) DeleteLikesForTrack(_ context.Context, trackID int64) error {
	for k := range r.likes {
		if k.trackID == trackID {
			delete(r.likes, k)
		}
	}
	return nil
}

type fakeRewardRepo struct {
	rewards map[int64][]string
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{rewards: make(map[int64][]string)}
}

func (r *fakeRewardRepo) GetRewardIDs(_ context.Context, userID int64) ([]string, error) {
	return append([]string(nil), r.rewards[userID]...), nil
}

func (r *fakeRewardRepo) AddRewards(_ context.Context, userID int64, rewardIDs []string, _ time.Time) error {
	have := make(map[string]struct{})
	for _, id := range r.rewards[userID] {
		have[id] = struct{}{}
	}
	for _, id := range rewardIDs {
		if _, ok := have[id]; !ok {
			r.rewards[userID] = append(r.rewards[userID], id)
		}
	}
	return nil
}

type fakeTrackRepo struct {
	count int64
}

func (r *fakeTrackRepo) CreateTrack(*model.Track) (int64, error)          { return 0, nil }
func (r *fakeTrackRepo) GetTrackByID(int64) (*model.Track, error)         { return nil, nil }
func (r *fakeTrackRepo) GetAllTracks() ([]*model.Track, error)            { return nil, nil }
func (r *fakeTrackRepo) GetTrackByAudioPath(string) (*model.Track, error) { return nil, nil }
func (r *fakeTrackRepo) CountTracks() (int64, error)                      { return r.count, nil }
func (r *fakeTrackRepo) DeleteTrack(int64) error                          { return nil }

type fakeDeduper struct {
	seen map[likeKey]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[likeKey]bool)}
}

func (d *fakeDeduper) FirstListen(_ context.Context, userID, trackID int64) (bool, error) {
	k := likeKey{userID, trackID}
	if d.seen[k] {
		return false, nil
	}
	d.seen[k] = true
	return true, nil
}

func newTestService(catalogSize int64, dedup ListenDeduper) (*Service, *fakeProfileRepo, *fakeRewardRepo) {
	profiles := newFakeProfileRepo()
	rewards := newFakeRewardRepo()
	svc := NewService(profiles, newFakeLikeRepo(), rewards, &fakeTrackRepo{count: catalogSize}, dedup)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc, profiles, rewards
}

func TestRecordListen(t *testing.T) {
	ctx := context.Background()

	t.Run("first listen increments and unlocks", func(t *testing.T) {
		svc, _, _ := newTestService(3, nil)

		status, err := svc.RecordListen(ctx, 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Profile.ListenCount != 1 {
			t.Errorf("expected listen count 1, got %d", status.Profile.ListenCount)
		}
		if status.Unlock.Celebrated != reward.FirstListen {
			t.Errorf("expected first_listen celebrated, got %q", status.Unlock.Celebrated)
		}
	})

	t.Run("duplicate inside the dedup window is absorbed", func(t *testing.T) {
		svc, _, _ := newTestService(3, newFakeDeduper())

		if _, err := svc.RecordListen(ctx, 1, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		status, err := svc.RecordListen(ctx, 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Profile.ListenCount != 1 {
			t.Errorf("expected listen count still 1, got %d", status.Profile.ListenCount)
		}
		if status.Unlock.Celebrated != "" {
			t.Errorf("expected no celebration on a duplicate, got %q", status.Unlock.Celebrated)
		}
	})

	t.Run("different track inside the window still counts", func(t *testing.T) {
		svc, _, _ := newTestService(3, newFakeDeduper())

		if _, err := svc.RecordListen(ctx, 1, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		status, err := svc.RecordListen(ctx, 1, 11)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Profile.ListenCount != 2 {
			t.Errorf("expected listen count 2, got %d", status.Profile.ListenCount)
		}
	})
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()

	t.Run("double toggle leaves exactly no like", func(t *testing.T) {
		svc, _, _ := newTestService(3, nil)

		liked, status, err := svc.ToggleLike(ctx, 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !liked || status.LikeCount != 1 {
			t.Errorf("expected liked with count 1, got liked=%v count=%d", liked, status.LikeCount)
		}

		liked, status, err = svc.ToggleLike(ctx, 1, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if liked || status.LikeCount != 0 {
			t.Errorf("expected unliked with count 0, got liked=%v count=%d", liked, status.LikeCount)
		}
	})

	t.Run("unliking keeps the first_like reward", func(t *testing.T) {
		svc, _, rewards := newTestService(3, nil)

		if _, _, err := svc.ToggleLike(ctx, 1, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, status, err := svc.ToggleLike(ctx, 1, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		} else if len(status.Rewards) == 0 {
			t.Error("expected first_like to stay persisted after unlike")
		}
		persisted, _ := rewards.GetRewardIDs(ctx, 1)
		if len(persisted) != 1 || persisted[0] != reward.FirstLike {
			t.Errorf("expected persisted [first_like], got %v", persisted)
		}
	})

	t.Run("liking the whole catalog unlocks full_archive", func(t *testing.T) {
		svc, _, _ := newTestService(2, nil)

		if _, _, err := svc.ToggleLike(ctx, 1, 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, status, err := svc.ToggleLike(ctx, 1, 11)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		found := false
		for _, id := range status.Unlock.NewIDs {
			if id == reward.FullArchive {
				found = true
			}
		}
		if !found {
			t.Errorf("expected full_archive in %v", status.Unlock.NewIDs)
		}
	})
}

func TestRecordShare(t *testing.T) {
	ctx := context.Background()
	svc, profiles, _ := newTestService(3, nil)

	status, err := svc.RecordShare(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Profile.ShareCount != 1 {
		t.Errorf("expected share count 1, got %d", status.Profile.ShareCount)
	}
	if status.Unlock.Celebrated != reward.FirstShare {
		t.Errorf("expected first_share celebrated, got %q", status.Unlock.Celebrated)
	}
	if profiles.profiles[1].ListenCount != 0 {
		t.Error("expected listen count untouched by a share")
	}
}

func TestEnsureProfile(t *testing.T) {
	ctx := context.Background()
	svc, profiles, _ := newTestService(3, nil)

	first, err := svc.EnsureProfile(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A later call with a later clock must not move firstJoin.
	svc.now = func() time.Time {
		return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	again, err := svc.EnsureProfile(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.FirstJoin.Equal(first.FirstJoin) {
		t.Errorf("expected firstJoin unchanged, got %v then %v", first.FirstJoin, again.FirstJoin)
	}
	if len(profiles.profiles) != 1 {
		t.Errorf("expected a single profile row, got %d", len(profiles.profiles))
	}
}

func TestStatusTier(t *testing.T) {
	ctx := context.Background()
	svc, profiles, _ := newTestService(3, nil)

	if _, err := svc.EnsureProfile(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Age the account past the Regular threshold.
	profiles.profiles[1].FirstJoin = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	status, err := svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Tier != reward.TierRegular {
		t.Errorf("expected Regular at 45 days, got %s", status.Tier)
	}
	if status.Days != 45 {
		t.Errorf("expected 45 days, got %d", status.Days)
	}
	// member_30d unlocks on pure re-evaluation.
	if len(status.Unlock.NewIDs) != 1 || status.Unlock.NewIDs[0] != reward.Member30d {
		t.Errorf("expected member_30d to unlock, got %v", status.Unlock.NewIDs)
	}
}
