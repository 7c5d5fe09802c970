package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/terraincognita07/sipwell/internal/metrics"
	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

// ReminderNotifier dispatches an eligible reminder through the chat
// transport. Implementations wrap permanent failures with
// ErrRecipientUnreachable.
type ReminderNotifier interface {
	NotifyReminder(ctx context.Context, user models.User, remainingLiters float64) error
}

// Scheduler owns one evaluation timer per notifiable user, armed for the
// next configured checkpoint hour. The registry is reachable only through
// ScheduleForUser/CancelForUser; nothing else touches it.
type Scheduler struct {
	users       UserStore
	intakes     IntakeStore
	engine      *Engine
	notifier    ReminderNotifier
	clock       Clock
	recorder    *metrics.Recorder
	checkpoints []int
	maxDaily    int

	ctx context.Context

	mu         sync.Mutex
	timers     map[uint]chan struct{}
	sentCounts map[uint]int
	sentDay    time.Time
}

func NewScheduler(
	users UserStore,
	intakes IntakeStore,
	engine *Engine,
	notifier ReminderNotifier,
	clock Clock,
	recorder *metrics.Recorder,
	checkpointHours []int,
	maxDailyReminders int,
) *Scheduler {
	checkpoints := make([]int, len(checkpointHours))
	copy(checkpoints, checkpointHours)
	sort.Ints(checkpoints)

	return &Scheduler{
		users:       users,
		intakes:     intakes,
		engine:      engine,
		notifier:    notifier,
		clock:       clock,
		recorder:    recorder,
		checkpoints: checkpoints,
		maxDaily:    maxDailyReminders,
		ctx:         context.Background(),
		timers:      make(map[uint]chan struct{}),
		sentCounts:  make(map[uint]int),
	}
}

// SetNotifier wires the dispatch target in after construction. The chat
// handler and the scheduler reference each other, so one of them has to
// arrive late; call this before Start.
func (scheduler *Scheduler) SetNotifier(notifier ReminderNotifier) {
	scheduler.notifier = notifier
}

// Start installs timers for every notifiable user. Pre-existing timers
// are cancelled first, so a restart never doubles up. Cancelling ctx
// stops every timer.
func (scheduler *Scheduler) Start(ctx context.Context) error {
	scheduler.ctx = ctx
	scheduler.CancelAll()

	users, err := scheduler.users.ListNotifiable()
	if err != nil {
		return fmt.Errorf("list notifiable users: %w", err)
	}

	for _, user := range users {
		scheduler.ScheduleForUser(user)
	}
	log.Printf("scheduler: installed timers for %d users", len(users))
	return nil
}

// ScheduleForUser installs the user's checkpoint timer, replacing any
// existing one. Calling it twice leaves exactly one timer. Users with
// notifications off only get their old timer cancelled.
func (scheduler *Scheduler) ScheduleForUser(user models.User) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	scheduler.cancelLocked(user.ID)
	if !user.NotificationsEnabled {
		return
	}

	done := make(chan struct{})
	scheduler.timers[user.ID] = done
	go scheduler.runUserTimer(user.ID, done)
}

// CancelForUser removes the user's timer. Calling it for a user with no
// timer is a no-op.
func (scheduler *Scheduler) CancelForUser(userID uint) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.cancelLocked(userID)
}

func (scheduler *Scheduler) CancelAll() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	for userID := range scheduler.timers {
		scheduler.cancelLocked(userID)
	}
}

func (scheduler *Scheduler) cancelLocked(userID uint) {
	if done, exists := scheduler.timers[userID]; exists {
		close(done)
		delete(scheduler.timers, userID)
	}
}

func (scheduler *Scheduler) activeTimerCount() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return len(scheduler.timers)
}

func (scheduler *Scheduler) runUserTimer(userID uint, done chan struct{}) {
	for {
		wait := scheduler.untilNextCheckpoint(scheduler.clock.Now())
		timer := time.NewTimer(wait)

		select {
		case <-done:
			timer.Stop()
			return
		case <-scheduler.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := scheduler.evaluateUser(scheduler.ctx, userID); err != nil {
			// One user's failure never stops the others; their timers run
			// independently.
			log.Printf("scheduler: evaluate user %d failed: %v", userID, err)
		}
	}
}

// untilNextCheckpoint computes the wait until the next checkpoint hour in
// the clock's timezone, rolling into tomorrow when today's checkpoints
// are all past.
func (scheduler *Scheduler) untilNextCheckpoint(now time.Time) time.Duration {
	location := scheduler.clock.Location()
	localized := now.In(location)
	dayStart := DateAtLocation(localized, location)

	for _, hour := range scheduler.checkpoints {
		checkpoint := dayStart.Add(time.Duration(hour) * time.Hour)
		if checkpoint.After(localized) {
			return checkpoint.Sub(localized)
		}
	}

	first := dayStart.AddDate(0, 0, 1).Add(time.Duration(scheduler.checkpoints[0]) * time.Hour)
	return first.Sub(localized)
}

// evaluateUser re-fetches fresh state (the profile may have changed or
// vanished since the timer was armed), applies the daily cap, runs the
// engine and dispatches.
func (scheduler *Scheduler) evaluateUser(ctx context.Context, userID uint) error {
	user, err := scheduler.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted mid-flight. Not an error; just drop the timer.
		scheduler.CancelForUser(userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if !user.NotificationsEnabled {
		scheduler.CancelForUser(userID)
		return nil
	}

	now := scheduler.clock.Now()
	if !scheduler.budgetLeft(userID, now) {
		scheduler.recorder.Evaluation("daily-cap")
		return nil
	}

	dayStart, dayEnd := DayRange(now, scheduler.clock.Location())
	aggregate, err := scheduler.intakes.DailyAggregate(userID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("load daily aggregate: %w", err)
	}
	lastIntakeAt, err := scheduler.intakes.LatestOccurredAt(userID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("load latest intake: %w", err)
	}

	decision := scheduler.engine.Evaluate(EligibilityInput{
		Profile:      user,
		Intake:       aggregate,
		LastIntakeAt: lastIntakeAt,
		Now:          now.In(scheduler.clock.Location()),
	})
	if !decision.Eligible {
		scheduler.recorder.Evaluation(string(decision.Reason))
		return nil
	}
	scheduler.recorder.Evaluation("eligible")

	if err := scheduler.notifier.NotifyReminder(ctx, user, decision.RemainingLiters); err != nil {
		if errors.Is(err, ErrRecipientUnreachable) {
			scheduler.recorder.TransportFailure("unreachable")
			return scheduler.dropUnreachableUser(userID)
		}
		scheduler.recorder.TransportFailure("transient")
		return fmt.Errorf("dispatch reminder: %w", err)
	}

	scheduler.recorder.ReminderSent()
	scheduler.countSent(userID, now)
	if err := scheduler.users.StampLastNotification(userID, now); err != nil {
		return fmt.Errorf("stamp last notification: %w", err)
	}
	return nil
}

// dropUnreachableUser cleans up a permanently gone recipient so later
// checkpoints stop retrying a dead target.
func (scheduler *Scheduler) dropUnreachableUser(userID uint) error {
	scheduler.CancelForUser(userID)
	if err := scheduler.users.DeleteCascade(userID); err != nil {
		return fmt.Errorf("delete unreachable user: %w", err)
	}
	log.Printf("scheduler: removed unreachable user %d", userID)
	return nil
}

// budgetLeft enforces the per-day send cap. The counter lives in memory
// and resets when the local date changes; reminders are best-effort, so
// losing it on restart is acceptable.
func (scheduler *Scheduler) budgetLeft(userID uint, now time.Time) bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.rollDayLocked(now)
	return scheduler.sentCounts[userID] < scheduler.maxDaily
}

func (scheduler *Scheduler) countSent(userID uint, now time.Time) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.rollDayLocked(now)
	scheduler.sentCounts[userID]++
}

func (scheduler *Scheduler) rollDayLocked(now time.Time) {
	location := scheduler.clock.Location()
	if !sameDay(scheduler.sentDay, now, location) {
		scheduler.sentCounts = make(map[uint]int)
		scheduler.sentDay = DateAtLocation(now, location)
	}
}
