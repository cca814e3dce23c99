// Package clock provides the wall clock used in production and a manual
// clock for tests.
package clock

import "time"

// SystemClock reads the wall clock. Times are always UTC.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
