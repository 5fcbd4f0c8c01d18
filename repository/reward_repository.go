package repository

import (
	"context"
	"fmt"
	"time"

	"unframe/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardRepository persists unlocked achievements. The set only ever
// grows: there is deliberately no delete operation.
type RewardRepository interface {
	GetRewardIDs(ctx context.Context, userID int64) ([]string, error)
	// AddRewards inserts the given ids for the user, silently skipping
	// any that are already present.
	AddRewards(ctx context.Context, userID int64, rewardIDs []string, now time.Time) error
}

type gormRewardRepository struct {
	db *gorm.DB
}

// NewGormRewardRepository creates a RewardRepository backed by GORM.
func NewGormRewardRepository(db *gorm.DB) RewardRepository {
	return &gormRewardRepository{db: db}
}

func (r *gormRewardRepository) GetRewardIDs(ctx context.Context, userID int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.UserReward{}).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Pluck("reward_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get rewards for user %d: %w", userID, err)
	}
	return ids, nil
}

func (r *gormRewardRepository) AddRewards(ctx context.Context, userID int64, rewardIDs []string, now time.Time) error {
	if len(rewardIDs) == 0 {
		return nil
	}
	rows := make([]model.UserReward, 0, len(rewardIDs))
	for _, id := range rewardIDs {
		rows = append(rows, model.UserReward{UserID: userID, RewardID: id, UnlockedAt: now})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to add rewards for user %d: %w", userID, err)
	}
	return nil
}
