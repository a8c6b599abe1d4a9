package modeling

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pdevs/sim/naming"
)

// CoupledBuilder builds Coupled models.
type CoupledBuilder struct {
	inPorts   []*Port
	outPorts  []*Port
	submodels []Model
	eics      []Coupling
	eocs      []Coupling
	ics       []Coupling
}

// MakeCoupledBuilder creates a new CoupledBuilder.
func MakeCoupledBuilder() CoupledBuilder {
	return CoupledBuilder{}
}

// WithInPorts adds input ports to the coupled model.
func (b CoupledBuilder) WithInPorts(ports ...*Port) CoupledBuilder {
	b.inPorts = appendCopy(b.inPorts, ports...)
	return b
}

// WithOutPorts adds output ports to the coupled model.
func (b CoupledBuilder) WithOutPorts(ports ...*Port) CoupledBuilder {
	b.outPorts = appendCopy(b.outPorts, ports...)
	return b
}

// WithSubmodels adds submodels. Each submodel is owned by the built coupled
// model and must not be added to another one.
func (b CoupledBuilder) WithSubmodels(models ...Model) CoupledBuilder {
	b.submodels = appendCopy(b.submodels, models...)
	return b
}

// WithEIC couples the input port `from` of the coupled model to the input
// port `toPort` of the submodel `toModel`.
func (b CoupledBuilder) WithEIC(from, toModel, toPort string) CoupledBuilder {
	b.eics = appendCopy(b.eics, Coupling{
		Kind: EIC,
		From: PortRef{Port: from},
		To:   PortRef{Model: toModel, Port: toPort},
	})

	return b
}

// WithEOC couples the output port `fromPort` of the submodel `fromModel` to
// the output port `to` of the coupled model.
func (b CoupledBuilder) WithEOC(fromModel, fromPort, to string) CoupledBuilder {
	b.eocs = appendCopy(b.eocs, Coupling{
		Kind: EOC,
		From: PortRef{Model: fromModel, Port: fromPort},
		To:   PortRef{Port: to},
	})

	return b
}

// WithIC couples the output port of one submodel to the input port of
// another.
func (b CoupledBuilder) WithIC(
	fromModel, fromPort, toModel, toPort string,
) CoupledBuilder {
	b.ics = appendCopy(b.ics, Coupling{
		Kind: IC,
		From: PortRef{Model: fromModel, Port: fromPort},
		To:   PortRef{Model: toModel, Port: toPort},
	})

	return b
}

// WithCoupling adds a coupling of any kind.
func (b CoupledBuilder) WithCoupling(c Coupling) CoupledBuilder {
	switch c.Kind {
	case EIC:
		b.eics = appendCopy(b.eics, c)
	case EOC:
		b.eocs = appendCopy(b.eocs, c)
	default:
		b.ics = appendCopy(b.ics, c)
	}

	return b
}

// Build validates the description and creates the coupled model.
func (b CoupledBuilder) Build(name string) (*Coupled, error) {
	if err := modelNameMustBeValid(name); err != nil {
		return nil, err
	}

	c := &Coupled{
		NamedBase:     naming.MakeNamedBase(name),
		PortOwnerBase: MakePortOwnerBase(),
		subIndex:      make(map[string]int),
	}

	if err := b.addPorts(c); err != nil {
		return nil, err
	}

	if err := b.addSubmodels(c); err != nil {
		return nil, err
	}

	if err := b.addCouplings(c); err != nil {
		return nil, err
	}

	if err := couplingGraphMustBeAcyclic(c); err != nil {
		return nil, err
	}

	return c, nil
}

func (b CoupledBuilder) addPorts(c *Coupled) error {
	for _, p := range b.inPorts {
		if p.Direction() != In {
			return fmt.Errorf("%w: %s.%s is declared as an input port",
				ErrPortDirection, c.Name(), p.Name())
		}

		if err := addPortOnce(c, p); err != nil {
			return err
		}
	}

	for _, p := range b.outPorts {
		if p.Direction() != Out {
			return fmt.Errorf("%w: %s.%s is declared as an output port",
				ErrPortDirection, c.Name(), p.Name())
		}

		if err := addPortOnce(c, p); err != nil {
			return err
		}
	}

	return nil
}

func addPortOnce(c *Coupled, p *Port) error {
	if _, found := c.LookupPort(p.Name()); found {
		return fmt.Errorf("%w: port %s.%s",
			ErrDuplicateName, c.Name(), p.Name())
	}

	c.AddPort(p)

	return nil
}

func (b CoupledBuilder) addSubmodels(c *Coupled) error {
	for _, m := range b.submodels {
		if m == nil {
			return fmt.Errorf("%w in %s", ErrNilModel, c.Name())
		}

		if err := modelNameMustBeValid(m.Name()); err != nil {
			return err
		}

		if _, found := c.subIndex[m.Name()]; found {
			return fmt.Errorf("%w: submodel %s in %s",
				ErrDuplicateName, m.Name(), c.Name())
		}

		c.subIndex[m.Name()] = len(c.submodels)
		c.submodels = append(c.submodels, m)
	}

	return nil
}

func (b CoupledBuilder) addCouplings(c *Coupled) error {
	seen := make(map[Coupling]bool)

	groups := []struct {
		couplings []Coupling
		dst       *[]Coupling
	}{
		{b.eics, &c.eics},
		{b.ics, &c.ics},
		{b.eocs, &c.eocs},
	}

	for _, g := range groups {
		for _, cp := range g.couplings {
			if seen[cp] {
				return fmt.Errorf("%w: %s in %s",
					ErrDuplicateCoupling, cp, c.Name())
			}

			if err := couplingMustBeValid(c, cp); err != nil {
				return err
			}

			seen[cp] = true
			*g.dst = append(*g.dst, cp)
		}
	}

	return nil
}

func modelNameMustBeValid(name string) error {
	if err := naming.Validate(name); err != nil {
		return err
	}

	if strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q: model names are single elements",
			ErrInvalidName, name)
	}

	return nil
}

func appendCopy[T any](s []T, items ...T) []T {
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s...)

	return append(out, items...)
}
