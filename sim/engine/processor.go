package engine

import (
	"runtime"
	"sync"

	"github.com/sarchlab/pdevs/sim/hooking"
	"github.com/sarchlab/pdevs/sim/id"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// A processor drives one model of the tree during a run. Simulators drive
// atomic models and Coordinators drive coupled models.
type processor interface {
	model() modeling.Model
	fullName() string

	// nextTime returns the time of the earliest internal event in the
	// subtree.
	nextTime() timing.VTimeInSec

	// collect gathers the outputs of the imminent models of the subtree,
	// routes them inside the subtree, and returns the messages that leave
	// the subtree through its own output ports.
	collect(t timing.VTimeInSec) ([]emission, error)

	// inject delivers a message that arrives on an input port.
	inject(port string, msg modeling.Msg, t timing.VTimeInSec)

	// hasInput tells if anything was delivered into the subtree this cycle.
	hasInput() bool

	// transition applies the transitions of the subtree and empties the
	// inboxes.
	transition(t timing.VTimeInSec) error

	// reset drops what was delivered into the subtree this cycle.
	reset()

	walk(f func(p processor))
}

// An emission is a message leaving a model through one of its output ports.
type emission struct {
	port string
	msg  modeling.Msg
}

// env is what every processor of a run shares.
type env struct {
	domain   hooking.Hookable
	hooks    *hooking.HookableBase
	ids      id.IDGenerator
	parallel bool
	workers  int
}

func (e *env) invoke(pos *hooking.HookPos, item, detail any) {
	if e.hooks.NumHooks() == 0 {
		return
	}

	e.hooks.InvokeHook(hooking.HookCtx{
		Domain: e.domain,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

// forEach calls f for 0 <= i < n. In parallel mode the calls run on a
// bounded set of goroutines and forEach returns after all of them finish.
// The returned error is the one of the lowest i that failed.
func (e *env) forEach(n int, f func(i int) error) error {
	if !e.parallel || n < 2 {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}

		return nil
	}

	workers := e.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	errs := make([]error, n)
	slots := make(chan struct{}, workers)

	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		slots <- struct{}{}

		go func(i int) {
			defer func() {
				<-slots
				wg.Done()
			}()

			errs[i] = f(i)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
