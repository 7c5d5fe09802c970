package services

import (
	"errors"
	"fmt"

	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

// IntakeService validates and records drinks and derives today's totals.
type IntakeService struct {
	users           UserStore
	intakes         IntakeStore
	clock           Clock
	maxAmountLiters float64
}

func NewIntakeService(users UserStore, intakes IntakeStore, clock Clock, maxAmountLiters float64) *IntakeService {
	return &IntakeService{
		users:           users,
		intakes:         intakes,
		clock:           clock,
		maxAmountLiters: maxAmountLiters,
	}
}

// ValidateAmount checks the (0, max] bounds: zero is rejected, the upper
// bound is inclusive.
func (service *IntakeService) ValidateAmount(amountLiters float64) error {
	if amountLiters <= 0 || amountLiters > service.maxAmountLiters {
		return fmt.Errorf("%w: %.2f not in (0, %.2f]", ErrAmountOutOfRange, amountLiters, service.maxAmountLiters)
	}
	return nil
}

// Record inserts one intake row for the chat, stamped with the clock's
// current instant.
func (service *IntakeService) Record(chatID int64, amountLiters float64, category string) (models.IntakeRecord, error) {
	if err := service.ValidateAmount(amountLiters); err != nil {
		return models.IntakeRecord{}, err
	}
	if !models.ValidCategory(category) {
		return models.IntakeRecord{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	user, err := service.users.FindByChatID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.IntakeRecord{}, ErrUnknownUser
		}
		return models.IntakeRecord{}, fmt.Errorf("load user for chat %d: %w", chatID, err)
	}

	record := models.IntakeRecord{
		UserID:       user.ID,
		AmountLiters: amountLiters,
		Category:     category,
		OccurredAt:   service.clock.Now(),
	}
	if err := service.intakes.Create(&record); err != nil {
		return models.IntakeRecord{}, fmt.Errorf("insert intake: %w", err)
	}
	return record, nil
}

// TodayAggregate recomputes the user's totals for the current calendar
// day in the clock's timezone.
func (service *IntakeService) TodayAggregate(userID uint) (models.DailyAggregate, error) {
	dayStart, dayEnd := DayRange(service.clock.Now(), service.clock.Location())
	return service.intakes.DailyAggregate(userID, dayStart, dayEnd)
}

// TodayRecords lists the day's rows in logging order, for the stats view.
func (service *IntakeService) TodayRecords(userID uint) ([]models.IntakeRecord, error) {
	dayStart, dayEnd := DayRange(service.clock.Now(), service.clock.Location())
	return service.intakes.ListByUserDayRange(userID, dayStart, dayEnd)
}
