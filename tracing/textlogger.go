package tracing

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sarchlab/pdevs/sim/engine"
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// Category selects the lines that a TextLogger writes.
type Category uint

// Categories of lines. They can be combined with |.
const (
	CategoryGlobalTime Category = 1 << iota
	CategoryState
	CategoryRouting

	CategoryAll = CategoryGlobalTime | CategoryState | CategoryRouting
)

var categoryNames = map[string]Category{
	"time":    CategoryGlobalTime,
	"state":   CategoryState,
	"routing": CategoryRouting,
	"all":     CategoryAll,
	"none":    0,
}

// ParseCategories parses a comma-separated list of category names: time,
// state, routing, all, or none.
func ParseCategories(s string) (Category, error) {
	var c Category

	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		cat, found := categoryNames[name]
		if !found {
			return 0, fmt.Errorf("unknown trace category %q", name)
		}

		c |= cat
	}

	return c, nil
}

// A TextLogger writes one line per event into a sink. State lines read
//
//	State for model Top.C3.C2.Acc is [1, 0]
//
// where the state is what the model reports through modeling.StateReporter.
type TextLogger struct {
	lock       sync.Mutex
	w          io.Writer
	categories Category
	err        error
}

// NewTextLogger creates a TextLogger that writes the given categories of
// lines.
func NewTextLogger(w io.Writer, categories Category) *TextLogger {
	return &TextLogger{w: w, categories: categories}
}

// Err returns the first error returned by the sink. Lines are dropped after
// an error.
func (l *TextLogger) Err() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.err
}

// GlobalTime writes the time of a cycle.
func (l *TextLogger) GlobalTime(t timing.VTimeInSec) {
	l.write(CategoryGlobalTime, "Global time: %s\n", formatTime(t))
}

// InitialState writes the state of a model before the run.
func (l *TextLogger) InitialState(info engine.TransitionInfo) {
	l.write(CategoryState, "State for model %s is %v\n",
		info.Model, renderState(info.State))
}

// Transition writes the state of a model after a transition.
func (l *TextLogger) Transition(info engine.TransitionInfo) {
	l.write(CategoryState, "State for model %s is %v\n",
		info.Model, renderState(info.State))
}

// Routed writes the source and the destination of a delivery.
func (l *TextLogger) Routed(msg modeling.Msg, info engine.RoutingInfo) {
	l.write(CategoryRouting, "Message %v routed from %s to %s\n",
		msg.Value, info.Src, info.Dst)
}

func (l *TextLogger) write(c Category, format string, args ...any) {
	if l.categories&c == 0 {
		return
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if l.err != nil {
		return
	}

	_, l.err = fmt.Fprintf(l.w, format, args...)
}

func formatTime(t timing.VTimeInSec) string {
	if timing.IsInfinite(t) {
		return "inf"
	}

	return strconv.FormatFloat(t, 'g', -1, 64)
}

func renderState(state any) any {
	if state == nil {
		return "unknown"
	}

	return state
}
