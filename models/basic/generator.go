// Package basic provides small atomic models that are handy for building and
// testing networks.
package basic

import (
	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/timing"
)

// A Generator emits the same integer on its out port at a fixed period. It
// never stops.
type Generator struct {
	*modeling.AtomicBase

	period timing.VTimeInSec
	value  int
	sent   int
}

// Out returns the port on which the values are emitted.
func (g *Generator) Out() *modeling.Port {
	return g.GetPortByName("out")
}

// TimeAdvance returns the period.
func (g *Generator) TimeAdvance() timing.VTimeInSec {
	return g.period
}

// Output emits the value.
func (g *Generator) Output() map[string]any {
	return map[string]any{"out": g.value}
}

// InternalTransition counts the value as sent.
func (g *Generator) InternalTransition() error {
	g.sent++
	return nil
}

// ExternalTransition does nothing. The generator has no input port.
func (g *Generator) ExternalTransition(
	_ timing.VTimeInSec,
	_ *modeling.Inbox,
) error {
	return nil
}

// State returns the number of values sent.
func (g *Generator) State() any {
	return g.sent
}

// GeneratorBuilder builds Generators.
type GeneratorBuilder struct {
	period timing.VTimeInSec
	value  int
}

// MakeGeneratorBuilder creates a GeneratorBuilder that emits 1 every second.
func MakeGeneratorBuilder() GeneratorBuilder {
	return GeneratorBuilder{
		period: 1,
		value:  1,
	}
}

// WithPeriod sets the time between two values.
func (b GeneratorBuilder) WithPeriod(period timing.VTimeInSec) GeneratorBuilder {
	b.period = period
	return b
}

// WithValue sets the value emitted.
func (b GeneratorBuilder) WithValue(value int) GeneratorBuilder {
	b.value = value
	return b
}

// Build creates a Generator.
func (b GeneratorBuilder) Build(name string) *Generator {
	if b.period <= 0 {
		panic("generator period must be positive")
	}

	g := &Generator{
		AtomicBase: modeling.NewAtomicBase(name),
		period:     b.period,
		value:      b.value,
	}
	g.AddPort(modeling.NewOutPort[int]("out"))

	return g
}
