package models

import "time"

// DailyUsage stores committed active minutes per user per calendar day.
// Rows grow only by additive increments; once the day has passed and the
// validator consumed it, the row is never touched again.
type DailyUsage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_daily_usage_user_date" json:"user_id"`
	Date        time.Time `gorm:"not null;uniqueIndex:idx_daily_usage_user_date" json:"date"`
	MinutesUsed int       `gorm:"default:0" json:"minutes_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
