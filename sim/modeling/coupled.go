package modeling

import (
	"github.com/sarchlab/pdevs/sim/naming"
)

// A Coupled model is a composition of submodels and the couplings between
// them. It cannot be changed after it is built.
type Coupled struct {
	naming.NamedBase
	PortOwnerBase

	submodels []Model
	subIndex  map[string]int

	eics []Coupling
	eocs []Coupling
	ics  []Coupling
}

// Submodels returns the submodels in the order they were added.
func (c *Coupled) Submodels() []Model {
	models := make([]Model, len(c.submodels))
	copy(models, c.submodels)

	return models
}

// Submodel returns the submodel with the given name.
func (c *Coupled) Submodel(name string) (Model, bool) {
	i, found := c.subIndex[name]
	if !found {
		return nil, false
	}

	return c.submodels[i], true
}

// EICs returns the external input couplings.
func (c *Coupled) EICs() []Coupling {
	return append([]Coupling(nil), c.eics...)
}

// EOCs returns the external output couplings.
func (c *Coupled) EOCs() []Coupling {
	return append([]Coupling(nil), c.eocs...)
}

// ICs returns the internal couplings.
func (c *Coupled) ICs() []Coupling {
	return append([]Coupling(nil), c.ics...)
}

// Couplings returns all the couplings, EICs first, then ICs, then EOCs.
func (c *Coupled) Couplings() []Coupling {
	all := make([]Coupling, 0, len(c.eics)+len(c.ics)+len(c.eocs))
	all = append(all, c.eics...)
	all = append(all, c.ics...)
	all = append(all, c.eocs...)

	return all
}
