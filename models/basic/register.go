package basic

import (
	"fmt"

	"github.com/sarchlab/pdevs/netconf"
	"github.com/sarchlab/pdevs/sim/modeling"
)

// Kinds under which Register adds the models.
const (
	GeneratorKind   = "generator"
	FilterFirstKind = "filter_first"
	AccumulatorKind = "accumulator"
)

// Register adds the basic models to a registry. Generators take the period
// and value parameters.
func Register(reg *netconf.Registry) {
	reg.Register(GeneratorKind, createGenerator)
	reg.Register(FilterFirstKind, noParams(func(name string) modeling.Atomic {
		return NewFilterFirst(name)
	}))
	reg.Register(AccumulatorKind, noParams(func(name string) modeling.Atomic {
		return NewAccumulator(name)
	}))
}

func createGenerator(
	name string,
	params netconf.Params,
) (modeling.Atomic, error) {
	period, err := params.Float("period", 1)
	if err != nil {
		return nil, err
	}

	if period <= 0 {
		return nil, fmt.Errorf("generator period must be positive, got %v",
			period)
	}

	value, err := params.Int("value", 1)
	if err != nil {
		return nil, err
	}

	for key := range params {
		if key != "period" && key != "value" {
			return nil, fmt.Errorf("unknown generator parameter %s", key)
		}
	}

	return MakeGeneratorBuilder().
		WithPeriod(period).
		WithValue(value).
		Build(name), nil
}

func noParams(create func(name string) modeling.Atomic) netconf.Factory {
	return func(name string, params netconf.Params) (modeling.Atomic, error) {
		if len(params) > 0 {
			return nil, fmt.Errorf("model %s takes no parameters", name)
		}

		return create(name), nil
	}
}
