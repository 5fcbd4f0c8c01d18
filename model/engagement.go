package model

import "time"

// UserProfile carries a user's cumulative engagement counters.
// ListenCount and ShareCount only ever increase; FirstJoin is set once
// when the profile row is created and never rewritten.
type UserProfile struct {
	ID                int64     `gorm:"primaryKey" json:"-"`
	UserID            int64     `gorm:"uniqueIndex;not null" json:"userId"`
	ListenCount       int64     `gorm:"not null;default:0" json:"listenCount"`
	ShareCount        int64     `gorm:"not null;default:0" json:"shareCount"`
	FirstJoin         time.Time `gorm:"not null" json:"firstJoin"`
	ProfileImage      string    `gorm:"size:767" json:"profileImage,omitempty"`
	HasSeenOnboarding bool      `gorm:"not null;default:false" json:"hasSeenOnboarding"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName keeps the table name explicit rather than GORM-pluralized.
func (UserProfile) TableName() string { return "user_profiles" }

// LikeRecord marks (user, track) as liked. Existence is the whole
// payload; the composite unique index makes rapid double toggles safe.
type LikeRecord struct {
	ID      int64     `gorm:"primaryKey" json:"-"`
	UserID  int64     `gorm:"uniqueIndex:uq_user_track;not null" json:"userId"`
	TrackID int64     `gorm:"uniqueIndex:uq_user_track;not null" json:"trackId"`
	LikedAt time.Time `gorm:"not null" json:"likedAt"`
}

func (LikeRecord) TableName() string { return "like_records" }

// UserReward is one unlocked achievement. Rows are only ever inserted,
// never deleted, which is what keeps the persisted reward set
// monotonic.
type UserReward struct {
	ID         int64     `gorm:"primaryKey" json:"-"`
	UserID     int64     `gorm:"uniqueIndex:uq_user_reward;not null" json:"userId"`
	RewardID   string    `gorm:"uniqueIndex:uq_user_reward;size:64;not null" json:"rewardId"`
	UnlockedAt time.Time `gorm:"not null" json:"unlockedAt"`
}

func (UserReward) TableName() string { return "user_rewards" }
