package service

import "time"

// Clock supplies the current time to the lifecycle engine. Deadline checks
// never call time.Now directly, so tests can pin the clock.
type Clock func() time.Time

func SystemClock() Clock {
	return time.Now
}
