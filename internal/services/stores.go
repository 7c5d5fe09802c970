package services

import (
	"time"

	"github.com/terraincognita07/sipwell/internal/models"
)

// UserStore is the narrow profile persistence surface the services need.
// *db.UserRepository satisfies it; tests substitute fakes.
type UserStore interface {
	FindByID(userID uint) (models.User, error)
	FindByChatID(chatID int64) (models.User, error)
	Create(user *models.User) error
	ListNotifiable() ([]models.User, error)
	UpdateGoal(userID uint, dailyGoalLiters float64) error
	UpdateNotificationsEnabled(userID uint, enabled bool) error
	UpdateLanguage(userID uint, language string) error
	StampLastNotification(userID uint, at time.Time) error
	DeleteCascade(userID uint) error
}

// IntakeStore is the ledger surface: inserts and day-scoped reads only.
type IntakeStore interface {
	Create(record *models.IntakeRecord) error
	DailyAggregate(userID uint, dayStart time.Time, dayEnd time.Time) (models.DailyAggregate, error)
	LatestOccurredAt(userID uint, dayStart time.Time, dayEnd time.Time) (*time.Time, error)
	ListByUserDayRange(userID uint, dayStart time.Time, dayEnd time.Time) ([]models.IntakeRecord, error)
}
