package engine

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pdevs/sim/timing"
)

// Configuration errors reported by NewRunner.
var (
	ErrIllDefinedTimeAdvance = errors.New("ill-defined time advance")
	ErrSharedModel           = errors.New("model instance used more than once")
	ErrUnsupportedModel      = errors.New("model is neither atomic nor coupled")
)

// Phase names the part of a cycle in which a model failed.
type Phase string

// Phases of a cycle.
const (
	PhaseOutput      Phase = "output"
	PhaseTransition  Phase = "transition"
	PhaseTimeAdvance Phase = "time advance"
)

// A ModelError aborts a run. It names the model that failed and the global
// time of the cycle.
type ModelError struct {
	Model string
	Time  timing.VTimeInSec
	Phase Phase
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s failed in %s at %.10f: %v",
		e.Model, e.Phase, e.Time, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
