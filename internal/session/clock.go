package session

import "time"

// Clock is the session's only time source. Deadline arithmetic always
// goes through it so tests can substitute a controllable clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}
