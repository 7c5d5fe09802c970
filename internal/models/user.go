package models

import "time"

const (
	DefaultDailyGoalLiters = 2.0

	GoalMinLiters = 0.5
	GoalMaxLiters = 10.0
)

// User is one Telegram chat the bot talks to. ChatID is the external
// identifier; everything else is reminder state.
type User struct {
	ID                   uint       `gorm:"primaryKey"`
	ChatID               int64      `gorm:"uniqueIndex;not null"`
	Language             string     `gorm:"not null;default:en"`
	DailyGoalLiters      float64    `gorm:"not null"`
	NotificationsEnabled bool       `gorm:"not null;default:true"`
	LastNotificationAt   *time.Time
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time
}
