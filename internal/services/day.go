package services

import "time"

// DateAtLocation truncates an instant to midnight of its calendar day in
// the given location.
func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// DayRange returns the half-open [midnight, next midnight) bounds around
// an instant.
func DayRange(value time.Time, location *time.Location) (time.Time, time.Time) {
	start := DateAtLocation(value, location)
	return start, start.AddDate(0, 0, 1)
}

func sameDay(a time.Time, b time.Time, location *time.Location) bool {
	return DateAtLocation(a, location).Equal(DateAtLocation(b, location))
}
