package modeling

import (
	"errors"

	"github.com/sarchlab/pdevs/sim/naming"
)

// Configuration errors. They are returned when a model graph is built and
// mean that the graph must not run.
var (
	ErrInvalidName       = naming.ErrInvalidName
	ErrDuplicateName     = errors.New("duplicated name")
	ErrNilModel          = errors.New("nil model")
	ErrUnknownModel      = errors.New("unknown model")
	ErrUnknownPort       = errors.New("unknown port")
	ErrPortDirection     = errors.New("wrong port direction")
	ErrPortTypeMismatch  = errors.New("port type mismatch")
	ErrDuplicateCoupling = errors.New("duplicated coupling")
	ErrCouplingCycle     = errors.New("coupling cycle")
)
