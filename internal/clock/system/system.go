// Package system provides a real clock implementation.
package system

import "time"

// Clock implements clock.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC. Every timestamp the service stores
// or compares is UTC; the sqlite backend in particular compares timestamps
// lexicographically, which breaks if readings mix zones.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
