package db

import (
	"time"

	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

type IntakeRepository struct {
	database *gorm.DB
}

func NewIntakeRepository(database *gorm.DB) *IntakeRepository {
	return &IntakeRepository{database: database}
}

func (repo *IntakeRepository) Create(record *models.IntakeRecord) error {
	return repo.database.Create(record).Error
}

func (repo *IntakeRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	if err := repo.database.Model(&models.IntakeRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *IntakeRepository) ListByUserDayRange(userID uint, dayStart time.Time, dayEnd time.Time) ([]models.IntakeRecord, error) {
	records := make([]models.IntakeRecord, 0)
	if err := repo.database.
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, dayStart, dayEnd).
		Order("occurred_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type categoryTotal struct {
	Category string  `gorm:"column:category"`
	Total    float64 `gorm:"column:total"`
}

// DailyAggregate sums the user's intake between the half-open day bounds,
// split by category.
func (repo *IntakeRepository) DailyAggregate(userID uint, dayStart time.Time, dayEnd time.Time) (models.DailyAggregate, error) {
	totals := make([]categoryTotal, 0, 2)
	if err := repo.database.Model(&models.IntakeRecord{}).
		Select("category, SUM(amount_liters) AS total").
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, dayStart, dayEnd).
		Group("category").
		Scan(&totals).Error; err != nil {
		return models.DailyAggregate{}, err
	}

	aggregate := models.DailyAggregate{}
	for _, row := range totals {
		switch row.Category {
		case models.CategoryWater:
			aggregate.WaterLiters = row.Total
		default:
			aggregate.OtherLiters += row.Total
		}
	}
	return aggregate, nil
}

// LatestOccurredAt returns the timestamp of the newest intake row inside
// the day bounds, or nil when the user logged nothing.
func (repo *IntakeRepository) LatestOccurredAt(userID uint, dayStart time.Time, dayEnd time.Time) (*time.Time, error) {
	var record models.IntakeRecord
	result := repo.database.
		Select("occurred_at").
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, dayStart, dayEnd).
		Order("occurred_at DESC, id DESC").
		Limit(1).
		Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	occurredAt := record.OccurredAt
	return &occurredAt, nil
}
