package services

import (
	"errors"
	"fmt"
)

// Period is a named contiguous range of local hours with a cumulative
// expected-progress target. The range is half-open: [StartHour, EndHour).
type Period struct {
	Name          string
	StartHour     int
	EndHour       int
	TargetPercent float64
}

// PeriodTable holds the day's ordered reminder windows. Hours outside
// every period (night) never produce reminders.
type PeriodTable struct {
	periods []Period
}

var errEmptyPeriodTable = errors.New("period table must contain at least one period")

// DefaultPeriods is the stock schedule: 30% of the goal by noon, 75% by
// five, everything by ten in the evening.
func DefaultPeriods() []Period {
	return []Period{
		{Name: "morning", StartHour: 8, EndHour: 12, TargetPercent: 30},
		{Name: "day", StartHour: 12, EndHour: 17, TargetPercent: 45},
		{Name: "evening", StartHour: 17, EndHour: 22, TargetPercent: 25},
	}
}

// NewPeriodTable validates the configured periods: ascending, pairwise
// non-overlapping, non-zero width, hours within the day and targets
// summing to a full goal. Misconfiguration is fatal here so nothing
// downstream ever divides by a zero-width window.
func NewPeriodTable(periods []Period) (PeriodTable, error) {
	if len(periods) == 0 {
		return PeriodTable{}, errEmptyPeriodTable
	}

	totalPercent := 0.0
	previousEnd := -1
	for _, period := range periods {
		if period.Name == "" {
			return PeriodTable{}, errors.New("period name must not be empty")
		}
		if period.StartHour < 0 || period.EndHour > 24 {
			return PeriodTable{}, fmt.Errorf("period %s hours out of range: %d-%d", period.Name, period.StartHour, period.EndHour)
		}
		if period.EndHour <= period.StartHour {
			return PeriodTable{}, fmt.Errorf("period %s has non-positive width: %d-%d", period.Name, period.StartHour, period.EndHour)
		}
		if period.StartHour < previousEnd {
			return PeriodTable{}, fmt.Errorf("period %s overlaps the previous one", period.Name)
		}
		if period.TargetPercent <= 0 {
			return PeriodTable{}, fmt.Errorf("period %s target must be positive, got %.2f", period.Name, period.TargetPercent)
		}
		previousEnd = period.EndHour
		totalPercent += period.TargetPercent
	}

	if totalPercent != 100 {
		return PeriodTable{}, fmt.Errorf("period targets must sum to 100, got %.2f", totalPercent)
	}

	table := PeriodTable{periods: make([]Period, len(periods))}
	copy(table.periods, periods)
	return table, nil
}

// Classify returns the period containing the local hour, or false when
// the hour falls outside every window.
func (table PeriodTable) Classify(hour int) (Period, bool) {
	for _, period := range table.periods {
		if hour >= period.StartHour && hour < period.EndHour {
			return period, true
		}
	}
	return Period{}, false
}

// ExpectedProgress computes the cumulative expected percentage of the
// daily goal at the given hour: the full targets of all periods before
// the active one, plus a linear share of the active period's target.
// The second result is false outside every window.
func (table PeriodTable) ExpectedProgress(hour int) (float64, bool) {
	active, ok := table.Classify(hour)
	if !ok {
		return 0, false
	}

	cumulative := 0.0
	for _, period := range table.periods {
		if period.EndHour <= active.StartHour {
			cumulative += period.TargetPercent
		}
	}

	width := float64(active.EndHour - active.StartHour)
	elapsed := float64(hour - active.StartHour)
	return cumulative + active.TargetPercent*elapsed/width, true
}

// Periods returns a copy of the configured windows.
func (table PeriodTable) Periods() []Period {
	periods := make([]Period, len(table.periods))
	copy(periods, table.periods)
	return periods
}
