// Package system provides the wall clock used outside tests.
package system

import "time"

// Clock returns UTC time truncated to microseconds, the resolution the SQL
// stores keep, so a timestamp survives a save and load unchanged.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
