package modeling

import (
	"fmt"
	"reflect"
	"strings"
)

// Direction tells if a port receives or emits messages.
type Direction int

// Port directions.
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// A Port is a typed, named attachment point of a model. The direction and the
// type are fixed when the port is created.
type Port struct {
	name string
	dir  Direction
	typ  reflect.Type
}

// NewPort creates a port. A nil type means that the port carries values of any
// type.
func NewPort(name string, dir Direction, typ reflect.Type) *Port {
	portNameMustBeValid(name)

	if typ == nil {
		typ = anyType
	}

	return &Port{name: name, dir: dir, typ: typ}
}

// NewInPort creates an input port that carries values of type T.
func NewInPort[T any](name string) *Port {
	return NewPort(name, In, typeOf[T]())
}

// NewOutPort creates an output port that carries values of type T.
func NewOutPort[T any](name string) *Port {
	return NewPort(name, Out, typeOf[T]())
}

var anyType = typeOf[any]()

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func portNameMustBeValid(name string) {
	if name == "" {
		panic("port name must not be empty")
	}

	if strings.ContainsAny(name, ". ") {
		panic("port name " + name + " must not contain dots or spaces")
	}
}

// Name returns the name of the port.
func (p *Port) Name() string {
	return p.name
}

// Direction returns the direction of the port.
func (p *Port) Direction() Direction {
	return p.dir
}

// Type returns the type of the values that the port carries.
func (p *Port) Type() reflect.Type {
	return p.typ
}

// Accepts tells if a value can be carried by the port.
func (p *Port) Accepts(v any) bool {
	if v == nil {
		return p.typ.Kind() == reflect.Interface
	}

	return reflect.TypeOf(v).AssignableTo(p.typ)
}

// CanFeed tells if every value emitted by p can be carried by dst.
func (p *Port) CanFeed(dst *Port) bool {
	return p.typ.AssignableTo(dst.typ)
}

// A PortRef refers to a port of a model by name. An empty Model refers to the
// port of the coupled model that declares the coupling.
type PortRef struct {
	Model string
	Port  string
}

func (r PortRef) String() string {
	if r.Model == "" {
		return r.Port
	}

	return r.Model + "." + r.Port
}
