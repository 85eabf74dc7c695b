// Package clock abstracts the wall-clock time source so attempt expiry can be
// exercised deterministically in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System returns the real wall-clock source.
func System() Clock {
	return systemClock{}
}
