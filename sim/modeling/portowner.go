package modeling

import (
	"fmt"
	"os"
	"sort"
)

// A PortOwner is an element that can communicate with others through ports.
type PortOwner interface {
	InPorts() []*Port
	OutPorts() []*Port
	LookupPort(name string) (*Port, bool)
	GetPortByName(name string) *Port
}

// PortOwnerBase provides an implementation of the PortOwner interface.
type PortOwnerBase struct {
	ports map[string]*Port
}

// MakePortOwnerBase creates a new PortOwnerBase
func MakePortOwnerBase() PortOwnerBase {
	return PortOwnerBase{
		ports: make(map[string]*Port),
	}
}

// AddPort adds a port. It panics if a port with the same name exists.
func (po *PortOwnerBase) AddPort(port *Port) *Port {
	if po.ports == nil {
		po.ports = make(map[string]*Port)
	}

	if _, found := po.ports[port.Name()]; found {
		panic("port " + port.Name() + " already exist")
	}

	po.ports[port.Name()] = port

	return port
}

// LookupPort returns the port with the given name, if it exists.
func (po *PortOwnerBase) LookupPort(name string) (*Port, bool) {
	port, found := po.ports[name]
	return port, found
}

// GetPortByName returns the port according to the name of the port. This
// function panics when the given name is not found.
func (po *PortOwnerBase) GetPortByName(name string) *Port {
	port, found := po.ports[name]
	if !found {
		errMsg := fmt.Sprintf(
			"Port %s is not available.\n", name)
		errMsg += "Available ports include:\n"

		for _, n := range po.portNames() {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}

		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return port
}

// InPorts returns the input ports sorted by name.
func (po *PortOwnerBase) InPorts() []*Port {
	return po.portsOf(In)
}

// OutPorts returns the output ports sorted by name.
func (po *PortOwnerBase) OutPorts() []*Port {
	return po.portsOf(Out)
}

func (po *PortOwnerBase) portsOf(dir Direction) []*Port {
	list := make([]*Port, 0, len(po.ports))

	for _, name := range po.portNames() {
		if po.ports[name].Direction() == dir {
			list = append(list, po.ports[name])
		}
	}

	return list
}

func (po *PortOwnerBase) portNames() []string {
	names := make([]string, 0, len(po.ports))
	for n := range po.ports {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
