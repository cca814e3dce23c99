// Package clock is the time source port. Repositories stamp records with it
// and the rate limiter refills buckets against it.
package clock

import "time"

type Clock interface {
	Now() time.Time
}
