package services

import (
	"context"
	"sync"
	"time"

	"github.com/terraincognita07/sipwell/internal/models"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu       sync.Mutex
	now      time.Time
	location *time.Location
}

func newFakeClock(now time.Time, location *time.Location) *fakeClock {
	return &fakeClock{now: now, location: location}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now.In(clock.location)
}

func (clock *fakeClock) Location() *time.Location {
	return clock.location
}

func (clock *fakeClock) Set(now time.Time) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = now
}

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[uint]models.User
	nextID uint
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uint]models.User), nextID: 1}
}

func (store *fakeUserStore) FindByID(userID uint) (models.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, exists := store.users[userID]
	if !exists {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (store *fakeUserStore) FindByChatID(chatID int64) (models.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, user := range store.users {
		if user.ChatID == chatID {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (store *fakeUserStore) Create(user *models.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user.ID = store.nextID
	store.nextID++
	store.users[user.ID] = *user
	return nil
}

func (store *fakeUserStore) ListNotifiable() ([]models.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	users := make([]models.User, 0)
	for _, user := range store.users {
		if user.NotificationsEnabled {
			users = append(users, user)
		}
	}
	return users, nil
}

func (store *fakeUserStore) update(userID uint, mutate func(*models.User)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, exists := store.users[userID]
	if !exists {
		return gorm.ErrRecordNotFound
	}
	mutate(&user)
	store.users[userID] = user
	return nil
}

func (store *fakeUserStore) UpdateGoal(userID uint, dailyGoalLiters float64) error {
	return store.update(userID, func(user *models.User) { user.DailyGoalLiters = dailyGoalLiters })
}

func (store *fakeUserStore) UpdateNotificationsEnabled(userID uint, enabled bool) error {
	return store.update(userID, func(user *models.User) { user.NotificationsEnabled = enabled })
}

func (store *fakeUserStore) UpdateLanguage(userID uint, language string) error {
	return store.update(userID, func(user *models.User) { user.Language = language })
}

func (store *fakeUserStore) StampLastNotification(userID uint, at time.Time) error {
	return store.update(userID, func(user *models.User) { user.LastNotificationAt = &at })
}

func (store *fakeUserStore) DeleteCascade(userID uint) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.users, userID)
	return nil
}

func (store *fakeUserStore) has(userID uint) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, exists := store.users[userID]
	return exists
}

type fakeIntakeStore struct {
	mu      sync.Mutex
	records []models.IntakeRecord
	nextID  uint
}

func newFakeIntakeStore() *fakeIntakeStore {
	return &fakeIntakeStore{nextID: 1}
}

func (store *fakeIntakeStore) Create(record *models.IntakeRecord) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	record.ID = store.nextID
	store.nextID++
	store.records = append(store.records, *record)
	return nil
}

func (store *fakeIntakeStore) inRange(record models.IntakeRecord, userID uint, dayStart time.Time, dayEnd time.Time) bool {
	if record.UserID != userID {
		return false
	}
	return !record.OccurredAt.Before(dayStart) && record.OccurredAt.Before(dayEnd)
}

func (store *fakeIntakeStore) DailyAggregate(userID uint, dayStart time.Time, dayEnd time.Time) (models.DailyAggregate, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	aggregate := models.DailyAggregate{}
	for _, record := range store.records {
		if !store.inRange(record, userID, dayStart, dayEnd) {
			continue
		}
		if record.Category == models.CategoryWater {
			aggregate.WaterLiters += record.AmountLiters
		} else {
			aggregate.OtherLiters += record.AmountLiters
		}
	}
	return aggregate, nil
}

func (store *fakeIntakeStore) LatestOccurredAt(userID uint, dayStart time.Time, dayEnd time.Time) (*time.Time, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var latest *time.Time
	for _, record := range store.records {
		if !store.inRange(record, userID, dayStart, dayEnd) {
			continue
		}
		occurredAt := record.OccurredAt
		if latest == nil || occurredAt.After(*latest) {
			latest = &occurredAt
		}
	}
	return latest, nil
}

func (store *fakeIntakeStore) ListByUserDayRange(userID uint, dayStart time.Time, dayEnd time.Time) ([]models.IntakeRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	records := make([]models.IntakeRecord, 0)
	for _, record := range store.records {
		if store.inRange(record, userID, dayStart, dayEnd) {
			records = append(records, record)
		}
	}
	return records, nil
}

type notifierCall struct {
	User            models.User
	RemainingLiters float64
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (notifier *fakeNotifier) NotifyReminder(_ context.Context, user models.User, remainingLiters float64) error {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if notifier.err != nil {
		return notifier.err
	}
	notifier.calls = append(notifier.calls, notifierCall{User: user, RemainingLiters: remainingLiters})
	return nil
}

func (notifier *fakeNotifier) callCount() int {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return len(notifier.calls)
}

type fakePlanner struct {
	mu        sync.Mutex
	scheduled []uint
	cancelled []uint
}

func (planner *fakePlanner) ScheduleForUser(user models.User) {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	planner.scheduled = append(planner.scheduled, user.ID)
}

func (planner *fakePlanner) CancelForUser(userID uint) {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	planner.cancelled = append(planner.cancelled, userID)
}
