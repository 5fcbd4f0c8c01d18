// Package engagement is the durable bookkeeping of a user's
// interaction with the archive: listen and share counters, per-track
// likes, and the reward observation pass that runs after every
// counter change.
package engagement

import (
	"context"
	"fmt"
	"time"

	"unframe/core/reward"
	"unframe/model"
	"unframe/repository"
)

// ListenDeduper swallows duplicate listen reports for the same
// (user, track) inside a short window. Re-renders, re-subscriptions
// and double posts land inside the window; a genuine replay of the
// track lands outside it.
type ListenDeduper interface {
	FirstListen(ctx context.Context, userID, trackID int64) (bool, error)
}

// Status is a user's full engagement picture after an operation:
// persisted counters, derived tier, the persisted reward set, and
// whatever just unlocked.
type Status struct {
	Profile   *model.UserProfile `json:"profile"`
	LikeCount int64              `json:"likeCount"`
	Days      int64              `json:"daysSinceJoin"`
	Tier      reward.Tier        `json:"tier"`
	Rewards   []string           `json:"rewards"`
	Unlock    reward.Unlock      `json:"unlock"`
}

// Service coordinates the engagement repositories. All dependencies
// are injected; construct once at startup.
type Service struct {
	profiles repository.ProfileRepository
	likes    repository.LikeRepository
	rewards  repository.RewardRepository
	tracks   repository.TrackRepository
	dedup    ListenDeduper
	now      func() time.Time
}

// NewService creates an engagement Service. dedup may be nil, in which
// case only the caller-side playback edge gating protects against
// duplicate listens.
func NewService(
	profiles repository.ProfileRepository,
	likes repository.LikeRepository,
	rewards repository.RewardRepository,
	tracks repository.TrackRepository,
	dedup ListenDeduper,
) *Service {
	return &Service{
		profiles: profiles,
		likes:    likes,
		rewards:  rewards,
		tracks:   tracks,
		dedup:    dedup,
		now:      time.Now,
	}
}

// EnsureProfile creates the profile row on first sight of an identity.
// Existing profiles (and their firstJoin) are left untouched.
func (s *Service) EnsureProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	return s.profiles.EnsureProfile(ctx, userID, s.now())
}

// RecordListen counts one playback start. Duplicate reports inside the
// dedup window are absorbed without incrementing; the returned Status
// reflects whichever happened.
func (s *Service) RecordListen(ctx context.Context, userID, trackID int64) (*Status, error) {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return nil, err
	}

	fresh := true
	if s.dedup != nil {
		var err error
		fresh, err = s.dedup.FirstListen(ctx, userID, trackID)
		if err != nil {
			return nil, fmt.Errorf("listen dedup check failed: %w", err)
		}
	}
	if fresh {
		if err := s.profiles.IncrementListenCount(ctx, userID); err != nil {
			return nil, err
		}
	}

	return s.observe(ctx, userID)
}

// RecordShare counts one completed share. Cancelled shares never reach
// this method.
func (s *Service) RecordShare(ctx context.Context, userID int64) (*Status, error) {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.profiles.IncrementShareCount(ctx, userID); err != nil {
		return nil, err
	}
	return s.observe(ctx, userID)
}

// ToggleLike flips liked state for (user, track) and re-observes.
func (s *Service) ToggleLike(ctx context.Context, userID, trackID int64) (bool, *Status, error) {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return false, nil, err
	}
	liked, err := s.likes.ToggleLike(ctx, userID, trackID, s.now())
	if err != nil {
		return false, nil, err
	}
	status, err := s.observe(ctx, userID)
	if err != nil {
		return liked, nil, err
	}
	return liked, status, nil
}

// SetProfileImage records the user's profile image URL.
func (s *Service) SetProfileImage(ctx context.Context, userID int64, imageURL string) error {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return err
	}
	return s.profiles.SetProfileImage(ctx, userID, imageURL)
}

// SetHasSeenOnboarding marks onboarding as seen. One-way, like the
// counters.
func (s *Service) SetHasSeenOnboarding(ctx context.Context, userID int64) error {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return err
	}
	return s.profiles.SetHasSeenOnboarding(ctx, userID)
}

// Status reads the current engagement picture without mutating
// anything except persisting rewards that are now due (time-window and
// membership rules unlock on pure re-evaluation too).
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	if _, err := s.EnsureProfile(ctx, userID); err != nil {
		return nil, err
	}
	return s.observe(ctx, userID)
}

// observe snapshots the counters, runs the pure evaluator, diffs
// against the persisted set, and appends what is new. Safe to re-run
// on every push; out-of-order snapshots converge on the next pass.
func (s *Service) observe(ctx context.Context, userID int64) (*Status, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile missing for user %d", userID)
	}

	likeCount, err := s.likes.CountLikesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	catalogSize, err := s.tracks.CountTracks()
	if err != nil {
		return nil, err
	}

	persisted, err := s.rewards.GetRewardIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	counters := reward.Counters{
		ListenCount: profile.ListenCount,
		LikeCount:   likeCount,
		ShareCount:  profile.ShareCount,
		FirstJoin:   profile.FirstJoin,
		CatalogSize: catalogSize,
	}

	unlock := reward.Observe(persisted, counters, now)
	if len(unlock.NewIDs) > 0 {
		if err := s.rewards.AddRewards(ctx, userID, unlock.NewIDs, now); err != nil {
			return nil, err
		}
		persisted = append(persisted, unlock.NewIDs...)
	}

	return &Status{
		Profile:   profile,
		LikeCount: likeCount,
		Days:      reward.DaysSince(profile.FirstJoin, now),
		Tier:      reward.TierFor(profile.FirstJoin, now),
		Rewards:   persisted,
		Unlock:    unlock,
	}, nil
}
