package services

import "time"

// Clock supplies the current instant and the timezone that defines the
// calendar day. Injected so period and interval checks can pin arbitrary
// instants in tests.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	location *time.Location
}

func NewSystemClock(location *time.Location) Clock {
	if location == nil {
		location = time.UTC
	}
	return systemClock{location: location}
}

func (clock systemClock) Now() time.Time {
	return time.Now().In(clock.location)
}

func (clock systemClock) Location() *time.Location {
	return clock.location
}
