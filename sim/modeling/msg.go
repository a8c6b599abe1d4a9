package modeling

import "github.com/sarchlab/pdevs/sim/timing"

// A Msg is a value that leaves an output port at the instant its model acts.
// Messages only live for the cycle in which they are produced.
type Msg struct {
	// ID is the identity of the message. Copies of the message routed along
	// different coupling paths share the ID.
	ID    string
	Value any
	Src   PortRef
	Time  timing.VTimeInSec
}
