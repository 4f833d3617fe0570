// Package clock abstracts wall time so the scheduler can be tested without
// waiting on it.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}
