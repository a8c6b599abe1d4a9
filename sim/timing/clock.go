package timing

import (
	"fmt"
	"sync"
)

// Clock holds the global simulated time. Only the root runner advances it;
// everything else reads.
type Clock struct {
	lock sync.RWMutex
	now  VTimeInSec
}

// NewClock creates a clock that starts at the given time.
func NewClock(start VTimeInSec) *Clock {
	return &Clock{now: start}
}

// Now returns the current time.
func (c *Clock) Now() VTimeInSec {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.now
}

// Advance moves the clock to t. The clock never moves backward.
func (c *Clock) Advance(t VTimeInSec) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if t < c.now {
		return fmt.Errorf("%w: now %.10f, requested %.10f",
			ErrTimeWentBackward, c.now, t)
	}

	c.now = t

	return nil
}
