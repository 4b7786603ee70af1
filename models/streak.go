package models

import (
	"time"

	"gorm.io/gorm"
)

// StreakRecord holds the per-user streak state. One row per user, created
// lazily on first activity and never deleted. Only the validator and the
// minute-commit path mutate it.
type StreakRecord struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	UserID          string `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	CurrentStreak   int    `gorm:"default:0" json:"current_streak"`
	LongestStreak   int    `gorm:"default:0" json:"longest_streak"`
	TotalDaysActive int    `gorm:"default:0" json:"total_days_active"`
	CurrentLevel    int    `gorm:"default:0" json:"current_level"`
	// LastActivityDate is the local midnight of the last day judged by the
	// validator; nil until the first validation.
	LastActivityDate *time.Time `json:"last_activity_date"`
	// DailyMinutes counts minutes committed for the currently open day.
	// Reset to zero exactly once per day, by the validator.
	DailyMinutes int        `gorm:"default:0" json:"daily_minutes"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLogoutAt *time.Time `json:"last_logout_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (r *StreakRecord) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (r *StreakRecord) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = time.Now()
	return nil
}
