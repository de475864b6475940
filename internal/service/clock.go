package service

import "time"

// venueClock returns the current time on the venue's calendar
func venueClock(loc *time.Location) func() time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}
