package models

import "time"

const (
	CategoryWater = "water"
	CategoryOther = "other"

	AmountMaxLiters = 3.0
)

// IntakeRecord is one logged drink. Rows are immutable once created;
// they are only ever inserted or bulk-deleted together with their user.
type IntakeRecord struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index;not null"`
	AmountLiters float64   `gorm:"not null"`
	Category     string    `gorm:"not null;default:water"`
	OccurredAt   time.Time `gorm:"index;not null"`
	CreatedAt    time.Time
}

// DailyAggregate sums one user's intake rows for one calendar day.
// It is always recomputed from the ledger, never stored.
type DailyAggregate struct {
	WaterLiters float64
	OtherLiters float64
}

func (aggregate DailyAggregate) GrandTotal() float64 {
	return aggregate.WaterLiters + aggregate.OtherLiters
}

func ValidCategory(category string) bool {
	return category == CategoryWater || category == CategoryOther
}
