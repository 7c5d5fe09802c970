package db

import (
	"time"

	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) FindByID(userID uint) (models.User, error) {
	var user models.User
	if err := repo.database.First(&user, userID).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) FindByChatID(chatID int64) (models.User, error) {
	var user models.User
	if err := repo.database.Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) Create(user *models.User) error {
	return repo.database.Create(user).Error
}

func (repo *UserRepository) CountUsers() (int64, error) {
	var count int64
	if err := repo.database.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *UserRepository) ListAll() ([]models.User, error) {
	users := make([]models.User, 0)
	if err := repo.database.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListNotifiable returns every user whose reminders are switched on.
func (repo *UserRepository) ListNotifiable() ([]models.User, error) {
	users := make([]models.User, 0)
	if err := repo.database.Where("notifications_enabled = ?", true).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *UserRepository) UpdateGoal(userID uint, dailyGoalLiters float64) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).
		Update("daily_goal_liters", dailyGoalLiters).Error
}

func (repo *UserRepository) UpdateNotificationsEnabled(userID uint, enabled bool) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).
		Update("notifications_enabled", enabled).Error
}

func (repo *UserRepository) UpdateLanguage(userID uint, language string) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).
		Update("language", language).Error
}

func (repo *UserRepository) StampLastNotification(userID uint, at time.Time) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).
		Update("last_notification_at", at).Error
}

// DeleteCascade removes a user together with every intake row they own.
// Either both go or neither does.
func (repo *UserRepository) DeleteCascade(userID uint) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.IntakeRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}
