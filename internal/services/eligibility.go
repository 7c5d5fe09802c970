package services

import (
	"time"

	"github.com/terraincognita07/sipwell/internal/models"
)

// BackoffPolicy controls how a freshly logged intake suppresses the next
// reminder.
type BackoffPolicy string

const (
	// BackoffResetInterval treats a fresh log like a sent notification:
	// the minimum interval restarts from the newest intake.
	BackoffResetInterval BackoffPolicy = "reset-interval"
	// BackoffWindow suppresses reminders for a dedicated short window
	// after the newest intake.
	BackoffWindow BackoffPolicy = "window"
	// BackoffOff ignores logged intake when timing reminders.
	BackoffOff BackoffPolicy = "off"
)

func ValidBackoffPolicy(policy BackoffPolicy) bool {
	switch policy {
	case BackoffResetInterval, BackoffWindow, BackoffOff:
		return true
	default:
		return false
	}
}

// ReminderPolicy is the static notification configuration.
type ReminderPolicy struct {
	MinInterval   time.Duration
	BackoffPolicy BackoffPolicy
	BackoffWindow time.Duration
}

type Reason string

const (
	ReasonDisabled      Reason = "disabled"
	ReasonOutsideWindow Reason = "outside-window"
	ReasonGoalMet       Reason = "goal-met"
	ReasonTooSoon       Reason = "too-soon"
	ReasonOnPace        Reason = "on-pace"
)

// Decision is the tagged outcome of one evaluation. When Eligible is
// true, RemainingLiters carries the figure for the reminder message and
// Reason is empty.
type Decision struct {
	Eligible        bool
	Reason          Reason
	RemainingLiters float64
}

func eligible(remainingLiters float64) Decision {
	return Decision{Eligible: true, RemainingLiters: remainingLiters}
}

func notEligible(reason Reason) Decision {
	return Decision{Reason: reason}
}

// EligibilityInput is everything one evaluation reads. LastIntakeAt is
// the newest intake of the day, used only by the backoff policy. Now
// must already be localized to the clock's timezone.
type EligibilityInput struct {
	Profile      models.User
	Intake       models.DailyAggregate
	LastIntakeAt *time.Time
	Now          time.Time
}

// Engine decides whether a reminder should fire for one user at one
// instant. It is a pure function over its input: it never sends anything
// and never mutates state.
type Engine struct {
	periods PeriodTable
	policy  ReminderPolicy
}

func NewEngine(periods PeriodTable, policy ReminderPolicy) *Engine {
	return &Engine{periods: periods, policy: policy}
}

// Evaluate runs the checks in precedence order and short-circuits on the
// first failure: disabled, outside-window, goal-met, too-soon, on-pace.
func (engine *Engine) Evaluate(input EligibilityInput) Decision {
	if !input.Profile.NotificationsEnabled {
		return notEligible(ReasonDisabled)
	}

	expectedPercent, inWindow := engine.periods.ExpectedProgress(input.Now.Hour())
	if !inWindow {
		return notEligible(ReasonOutsideWindow)
	}

	grandTotal := input.Intake.GrandTotal()
	if grandTotal >= input.Profile.DailyGoalLiters {
		return notEligible(ReasonGoalMet)
	}

	if engine.tooSoon(input) {
		return notEligible(ReasonTooSoon)
	}

	// Percentages stay unrounded until formatting so the pace comparison
	// never accumulates rounding error.
	currentPercent := grandTotal / input.Profile.DailyGoalLiters * 100
	if currentPercent >= expectedPercent {
		return notEligible(ReasonOnPace)
	}

	return eligible(input.Profile.DailyGoalLiters - grandTotal)
}

func (engine *Engine) tooSoon(input EligibilityInput) bool {
	if last := input.Profile.LastNotificationAt; last != nil {
		if input.Now.Sub(*last) < engine.policy.MinInterval {
			return true
		}
	}

	if input.LastIntakeAt == nil {
		return false
	}

	switch engine.policy.BackoffPolicy {
	case BackoffResetInterval:
		return input.Now.Sub(*input.LastIntakeAt) < engine.policy.MinInterval
	case BackoffWindow:
		return input.Now.Sub(*input.LastIntakeAt) < engine.policy.BackoffWindow
	default:
		return false
	}
}
