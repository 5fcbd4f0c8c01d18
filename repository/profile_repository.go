package repository

import (
	"context"
	"fmt"
	"time"

	"unframe/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines operations on per-user engagement counters.
//
// The counter increments are expressed as column arithmetic inside the
// UPDATE so concurrent sessions of the same user commute instead of
// losing writes to read-modify-write races.
type ProfileRepository interface {
	// EnsureProfile creates a profile with zeroed counters and
	// firstJoin=now if and only if none exists. It never rewrites an
	// existing profile's firstJoin.
	EnsureProfile(ctx context.Context, userID int64, now time.Time) (*model.UserProfile, error)
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	IncrementListenCount(ctx context.Context, userID int64) error
	IncrementShareCount(ctx context.Context, userID int64) error
	SetProfileImage(ctx context.Context, userID int64, imageURL string) error
	SetHasSeenOnboarding(ctx context.Context, userID int64) error
}

type gormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a ProfileRepository backed by GORM.
func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) EnsureProfile(ctx context.Context, userID int64, now time.Time) (*model.UserProfile, error) {
	profile := &model.UserProfile{
		UserID:    userID,
		FirstJoin: now,
	}
	// ON CONFLICT DO NOTHING keeps this a create-if-absent: a racing
	// second session must not reset counters or firstJoin.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile for user %d: %w", userID, err)
	}
	return r.GetProfile(ctx, userID)
}

func (r *gormProfileRepository) GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // profile not found
		}
		return nil, fmt.Errorf("failed to get profile for user %d: %w", userID, err)
	}
	return &profile, nil
}

func (r *gormProfileRepository) IncrementListenCount(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("listen_count", gorm.Expr("listen_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to increment listen count for user %d: %w", userID, err)
	}
	return nil
}

func (r *gormProfileRepository) IncrementShareCount(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("share_count", gorm.Expr("share_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to increment share count for user %d: %w", userID, err)
	}
	return nil
}

func (r *gormProfileRepository) SetProfileImage(ctx context.Context, userID int64, imageURL string) error {
	err := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("user_id = ?", userID).
		Update("profile_image", imageURL).Error
	if err != nil {
		return fmt.Errorf("failed to set profile image for user %d: %w", userID, err)
	}
	return nil
}

func (r *gormProfileRepository) SetHasSeenOnboarding(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("user_id = ?", userID).
		Update("has_seen_onboarding", true).Error
	if err != nil {
		return fmt.Errorf("failed to set onboarding flag for user %d: %w", userID, err)
	}
	return nil
}
