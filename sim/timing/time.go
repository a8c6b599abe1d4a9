// Package timing provides the simulated time, the global clock, and the
// next-event schedule used by the coordinators.
package timing

import (
	"errors"
	"fmt"
	"math"
)

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec = float64

// Infinity is the time advance of a passive model.
var Infinity = VTimeInSec(math.Inf(1))

// ErrTimeWentBackward is returned when the clock is asked to move to a time
// earlier than the current one.
var ErrTimeWentBackward = errors.New("simulated time cannot decrease")

// IsInfinite tells if the time is the positive infinity.
func IsInfinite(t VTimeInSec) bool {
	return math.IsInf(t, 1)
}

// TimeAdvanceMustBeValid returns an error if the time advance is NaN or
// negative. Infinity is valid.
func TimeAdvanceMustBeValid(ta VTimeInSec) error {
	if math.IsNaN(ta) {
		return errors.New("time advance is NaN")
	}

	if ta < 0 {
		return fmt.Errorf("time advance %v is negative", ta)
	}

	return nil
}

// A TimeTeller can tell the current simulated time.
type TimeTeller interface {
	Now() VTimeInSec
}
