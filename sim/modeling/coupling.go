package modeling

import "fmt"

// CouplingKind tells where a coupling sits relative to the boundary of the
// coupled model that declares it.
type CouplingKind int

// Kinds of couplings.
const (
	// EIC connects an input port of the coupled model to an input port of a
	// submodel.
	EIC CouplingKind = iota
	// EOC connects an output port of a submodel to an output port of the
	// coupled model.
	EOC
	// IC connects an output port of a submodel to an input port of a
	// submodel.
	IC
)

func (k CouplingKind) String() string {
	switch k {
	case EIC:
		return "EIC"
	case EOC:
		return "EOC"
	case IC:
		return "IC"
	default:
		return fmt.Sprintf("CouplingKind(%d)", int(k))
	}
}

// A Coupling is a directed edge between two ports.
type Coupling struct {
	Kind CouplingKind
	From PortRef
	To   PortRef
}

func (c Coupling) String() string {
	return fmt.Sprintf("%s %s -> %s", c.Kind, c.From, c.To)
}
