package repository

import (
	"context"
	"fmt"
	"time"

	"unframe/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines operations on per-user like records.
type LikeRepository interface {
	// ToggleLike flips liked state for (user, track) and reports the
	// resulting state. Check-and-mutate runs inside one transaction,
	// and the (user_id, track_id) unique key backstops it, so a rapid
	// double toggle cannot insert duplicate rows.
	ToggleLike(ctx context.Context, userID, trackID int64, now time.Time) (liked bool, err error)
	GetLikesByUser(ctx context.Context, userID int64) ([]*model.LikeRecord, error)
	CountLikesByUser(ctx context.Context, userID int64) (int64, error)
	IsLiked(ctx context.Context, userID, trackID int64) (bool, error)
	DeleteLikesForTrack(ctx context.Context, trackID int64) error
}

type gormLikeRepository struct {
	db *gorm.DB
}

// NewGormLikeRepository creates a LikeRepository backed by GORM.
func NewGormLikeRepository(db *gorm.DB) LikeRepository {
	return &gormLikeRepository{db: db}
}

func (r *gormLikeRepository) ToggleLike(ctx context.Context, userID, trackID int64, now time.Time) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND track_id = ?", userID, trackID).Delete(&model.LikeRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete like record: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}

		record := &model.LikeRecord{UserID: userID, TrackID: trackID, LikedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
			return fmt.Errorf("failed to create like record: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle like for user %d track %d: %w", userID, trackID, err)
	}
	return liked, nil
}

func (r *gormLikeRepository) GetLikesByUser(ctx context.Context, userID int64) ([]*model.LikeRecord, error) {
	var likes []*model.LikeRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("liked_at DESC").
		Find(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get likes for user %d: %w", userID, err)
	}
	return likes, nil
}

func (r *gormLikeRepository) CountLikesByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LikeRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count likes for user %d: %w", userID, err)
	}
	return count, nil
}

func (r *gormLikeRepository) IsLiked(ctx context.Context, userID, trackID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LikeRecord{}).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check like for user %d track %d: %w", userID, trackID, err)
	}
	return count > 0, nil
}

// DeleteLikesForTrack clears all like records pointing at a deleted
// track so profile like counts stay consistent with the catalog.
func (r *gormLikeRepository) DeleteLikesForTrack(ctx context.Context, trackID int64) error {
	err := r.db.WithContext(ctx).
		Where("track_id = ?", trackID).
		Delete(&model.LikeRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete likes for track %d: %w", trackID, err)
	}
	return nil
}
