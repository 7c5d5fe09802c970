package services

import (
	"errors"
	"fmt"

	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

// ReminderPlanner is the slice of the scheduler the profile service uses
// to keep timers consistent with profile mutations.
type ReminderPlanner interface {
	ScheduleForUser(user models.User)
	CancelForUser(userID uint)
}

// GoalBounds is the validated range for daily goals, inclusive on both
// ends.
type GoalBounds struct {
	MinLiters float64
	MaxLiters float64
}

// ProfileService owns user lifecycle: creation on first goal setting,
// goal changes, the notifications toggle and cascading deletion. Every
// mutation that affects reminders also adjusts the planner.
type ProfileService struct {
	users   UserStore
	clock   Clock
	planner ReminderPlanner
	bounds  GoalBounds
}

func NewProfileService(users UserStore, clock Clock, planner ReminderPlanner, bounds GoalBounds) *ProfileService {
	return &ProfileService{users: users, clock: clock, planner: planner, bounds: bounds}
}

func (service *ProfileService) Get(chatID int64) (models.User, error) {
	user, err := service.users.FindByChatID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUnknownUser
		}
		return models.User{}, fmt.Errorf("load user for chat %d: %w", chatID, err)
	}
	return user, nil
}

func (service *ProfileService) ValidateGoal(dailyGoalLiters float64) error {
	if dailyGoalLiters < service.bounds.MinLiters || dailyGoalLiters > service.bounds.MaxLiters {
		return fmt.Errorf("%w: %.2f not in [%.2f, %.2f]",
			ErrGoalOutOfRange, dailyGoalLiters, service.bounds.MinLiters, service.bounds.MaxLiters)
	}
	return nil
}

// SetGoal creates the profile on first use and updates it afterwards,
// then (re)schedules reminders for the fresh state.
func (service *ProfileService) SetGoal(chatID int64, dailyGoalLiters float64, language string) (models.User, error) {
	if err := service.ValidateGoal(dailyGoalLiters); err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByChatID(chatID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ChatID:               chatID,
			Language:             language,
			DailyGoalLiters:      dailyGoalLiters,
			NotificationsEnabled: true,
		}
		if err := service.users.Create(&user); err != nil {
			return models.User{}, fmt.Errorf("create user for chat %d: %w", chatID, err)
		}
	case err != nil:
		return models.User{}, fmt.Errorf("load user for chat %d: %w", chatID, err)
	default:
		if err := service.users.UpdateGoal(user.ID, dailyGoalLiters); err != nil {
			return models.User{}, fmt.Errorf("update goal for chat %d: %w", chatID, err)
		}
		user.DailyGoalLiters = dailyGoalLiters
	}

	service.planner.ScheduleForUser(user)
	return user, nil
}

// SetNotificationsEnabled flips the toggle and installs or cancels the
// user's timers to match.
func (service *ProfileService) SetNotificationsEnabled(chatID int64, enabled bool) (models.User, error) {
	user, err := service.Get(chatID)
	if err != nil {
		return models.User{}, err
	}

	if err := service.users.UpdateNotificationsEnabled(user.ID, enabled); err != nil {
		return models.User{}, fmt.Errorf("update notifications for chat %d: %w", chatID, err)
	}
	user.NotificationsEnabled = enabled

	if enabled {
		service.planner.ScheduleForUser(user)
	} else {
		service.planner.CancelForUser(user.ID)
	}
	return user, nil
}

func (service *ProfileService) SetLanguage(chatID int64, language string) error {
	user, err := service.Get(chatID)
	if err != nil {
		return err
	}
	return service.users.UpdateLanguage(user.ID, language)
}

// Delete cancels the user's timers first, then removes the profile and
// every intake row in one transaction, so no reminder can fire after the
// delete commits.
func (service *ProfileService) Delete(chatID int64) error {
	user, err := service.Get(chatID)
	if err != nil {
		return err
	}

	service.planner.CancelForUser(user.ID)
	if err := service.users.DeleteCascade(user.ID); err != nil {
		return fmt.Errorf("delete user for chat %d: %w", chatID, err)
	}
	return nil
}
