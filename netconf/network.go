package netconf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sarchlab/pdevs/sim/modeling"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for files whose extension is neither YAML nor
// TOML.
var ErrUnknownFormat = errors.New("unknown network file format")

// Format is the syntax of a network file.
type Format int

// Supported formats.
const (
	YAML Format = iota
	TOML
)

// A Network describes a coupled model.
type Network struct {
	Name      string     `yaml:"name" toml:"name"`
	InPorts   []PortSpec `yaml:"in_ports" toml:"in_ports"`
	OutPorts  []PortSpec `yaml:"out_ports" toml:"out_ports"`
	Models    []Model    `yaml:"models" toml:"models"`
	Couplings []Link     `yaml:"couplings" toml:"couplings"`
}

// A PortSpec declares a port of a coupled model. Type is one of int, float,
// bool, string, or any. An empty type means any. A port of type any only
// feeds ports of type any, so a network port coupled to a typed port of a
// model must declare the same type.
type PortSpec struct {
	Name string `yaml:"name" toml:"name"`
	Type string `yaml:"type" toml:"type"`
}

// A Model is a submodel. It is either an atomic model of a registered kind or
// a nested network.
type Model struct {
	Name    string   `yaml:"name" toml:"name"`
	Kind    string   `yaml:"kind" toml:"kind"`
	Params  Params   `yaml:"params" toml:"params"`
	Network *Network `yaml:"network" toml:"network"`
}

// A Link connects two ports. A port of a submodel is written as
// "Model.port"; a port of the network itself is written as "port".
type Link struct {
	From string `yaml:"from" toml:"from"`
	To   string `yaml:"to" toml:"to"`
}

// LoadFile reads a network file. The format follows the extension: .yaml and
// .yml for YAML, .toml for TOML.
func LoadFile(path string) (*Network, error) {
	var format Format

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = YAML
	case ".toml":
		format = TOML
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}

	return Parse(data, format)
}

// Parse decodes a network. Unknown keys are rejected.
func Parse(data []byte, format Format) (*Network, error) {
	var n Network

	switch format {
	case YAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		if err := decoder.Decode(&n); err != nil {
			return nil, fmt.Errorf("parsing network: %w", err)
		}
	case TOML:
		meta, err := toml.Decode(string(data), &n)
		if err != nil {
			return nil, fmt.Errorf("parsing network: %w", err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing network: unknown key %s",
				undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}

	return &n, nil
}

// Build creates the coupled model that the network describes.
func (n *Network) Build(reg *Registry) (*modeling.Coupled, error) {
	b := modeling.MakeCoupledBuilder()

	for _, p := range n.InPorts {
		port, err := p.port(modeling.In)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}

		b = b.WithInPorts(port)
	}

	for _, p := range n.OutPorts {
		port, err := p.port(modeling.Out)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}

		b = b.WithOutPorts(port)
	}

	for _, m := range n.Models {
		sub, err := m.build(reg)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}

		b = b.WithSubmodels(sub)
	}

	for _, l := range n.Couplings {
		c, err := l.coupling()
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", n.Name, err)
		}

		b = b.WithCoupling(c)
	}

	return b.Build(n.Name)
}

func (m Model) build(reg *Registry) (modeling.Model, error) {
	if m.Network != nil {
		if m.Kind != "" {
			return nil, fmt.Errorf(
				"model %s has both a kind and a network", m.Name)
		}

		nested := *m.Network
		if nested.Name == "" {
			nested.Name = m.Name
		}

		if nested.Name != m.Name {
			return nil, fmt.Errorf("model %s holds network %s",
				m.Name, nested.Name)
		}

		return nested.Build(reg)
	}

	return reg.Create(m.Kind, m.Name, m.Params)
}

var portTypes = map[string]reflect.Type{
	"":       nil,
	"any":    nil,
	"int":    reflect.TypeOf(0),
	"float":  reflect.TypeOf(0.0),
	"bool":   reflect.TypeOf(false),
	"string": reflect.TypeOf(""),
}

func (p PortSpec) port(dir modeling.Direction) (*modeling.Port, error) {
	typ, found := portTypes[p.Type]
	if !found {
		return nil, fmt.Errorf("port %s has unknown type %q", p.Name, p.Type)
	}

	if p.Name == "" || strings.ContainsAny(p.Name, ". ") {
		return nil, fmt.Errorf("%w: port name %q",
			modeling.ErrInvalidName, p.Name)
	}

	return modeling.NewPort(p.Name, dir, typ), nil
}

func (l Link) coupling() (modeling.Coupling, error) {
	from := splitRef(l.From)
	to := splitRef(l.To)

	if from.Port == "" || to.Port == "" {
		return modeling.Coupling{}, fmt.Errorf(
			"coupling %s -> %s has an empty end", l.From, l.To)
	}

	c := modeling.Coupling{From: from, To: to}

	switch {
	case from.Model == "" && to.Model == "":
		return modeling.Coupling{}, fmt.Errorf(
			"coupling %s -> %s connects the network to itself", l.From, l.To)
	case from.Model == "":
		c.Kind = modeling.EIC
	case to.Model == "":
		c.Kind = modeling.EOC
	default:
		c.Kind = modeling.IC
	}

	return c, nil
}

func splitRef(s string) modeling.PortRef {
	s = strings.TrimSpace(s)

	i := strings.LastIndex(s, ".")
	if i < 0 {
		return modeling.PortRef{Port: s}
	}

	return modeling.PortRef{Model: s[:i], Port: s[i+1:]}
}
