package modeling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sarchlab/pdevs/sim/naming"
)

func couplingMustBeValid(c *Coupled, cp Coupling) error {
	if err := couplingEndsMustMatchKind(c, cp); err != nil {
		return err
	}

	src, err := resolvePort(c, cp.From, sourceDirection(cp.Kind))
	if err != nil {
		return fmt.Errorf("%s in %s: %w", cp, c.Name(), err)
	}

	dstDir := In
	if cp.Kind == EOC {
		dstDir = Out
	}

	dst, err := resolvePort(c, cp.To, dstDir)
	if err != nil {
		return fmt.Errorf("%s in %s: %w", cp, c.Name(), err)
	}

	if !src.CanFeed(dst) {
		return fmt.Errorf("%w: %s in %s carries %s into %s",
			ErrPortTypeMismatch, cp, c.Name(), src.Type(), dst.Type())
	}

	return nil
}

func sourceDirection(kind CouplingKind) Direction {
	if kind == EIC {
		return In
	}

	return Out
}

func couplingEndsMustMatchKind(c *Coupled, cp Coupling) error {
	fromSelf := cp.From.Model == ""
	toSelf := cp.To.Model == ""

	var ok bool

	switch cp.Kind {
	case EIC:
		ok = fromSelf && !toSelf
	case EOC:
		ok = !fromSelf && toSelf
	case IC:
		ok = !fromSelf && !toSelf
	}

	if !ok {
		return fmt.Errorf("%w: %s in %s connects the wrong models",
			ErrUnknownModel, cp, c.Name())
	}

	return nil
}

func resolvePort(c *Coupled, ref PortRef, dir Direction) (*Port, error) {
	var owner Model = c

	if ref.Model != "" {
		m, found := c.Submodel(ref.Model)
		if !found {
			return nil, fmt.Errorf("%w %s", ErrUnknownModel, ref.Model)
		}

		owner = m
	}

	p, found := owner.LookupPort(ref.Port)
	if !found {
		return nil, fmt.Errorf("%w %s", ErrUnknownPort, ref)
	}

	if p.Direction() != dir {
		return nil, fmt.Errorf("%w: %s is an %s port",
			ErrPortDirection, ref, p.Direction())
	}

	return p, nil
}

// flatNode is a model in a coupled model tree, with its full name.
type flatNode struct {
	model    Model
	path     string
	parent   *flatNode
	coupled  *Coupled
	children map[string]*flatNode
}

func flatten(m Model, parent *flatNode, leaves *[]*flatNode) *flatNode {
	path := m.Name()
	if parent != nil {
		path = naming.BuildName(parent.path, m.Name())
	}

	n := &flatNode{model: m, path: path, parent: parent}

	c, isCoupled := m.(*Coupled)
	if !isCoupled {
		*leaves = append(*leaves, n)
		return n
	}

	n.coupled = c
	n.children = make(map[string]*flatNode)

	for _, sub := range c.submodels {
		n.children[sub.Name()] = flatten(sub, n, leaves)
	}

	return n
}

// resolveOut finds the leaves that receive, in the same cycle, the messages
// emitted on the output port of n. Routing stops at the root of the tree.
func (n *flatNode) resolveOut(port string, found map[string]bool) {
	p := n.parent
	if p == nil {
		return
	}

	from := PortRef{Model: n.model.Name(), Port: port}

	for _, cp := range p.coupled.ics {
		if cp.From == from {
			p.children[cp.To.Model].resolveIn(cp.To.Port, found)
		}
	}

	for _, cp := range p.coupled.eocs {
		if cp.From == from {
			p.resolveOut(cp.To.Port, found)
		}
	}
}

func (n *flatNode) resolveIn(port string, found map[string]bool) {
	if n.coupled == nil {
		found[n.path] = true
		return
	}

	for _, cp := range n.coupled.eics {
		if cp.From.Port == port {
			n.children[cp.To.Model].resolveIn(cp.To.Port, found)
		}
	}
}

// couplingGraphMustBeAcyclic rejects trees in which the messages of a model
// can come back to the model through couplings, directly or through other
// models.
func couplingGraphMustBeAcyclic(c *Coupled) error {
	var leaves []*flatNode

	flatten(c, nil, &leaves)

	edges := make(map[string][]string)

	for _, leaf := range leaves {
		found := make(map[string]bool)
		for _, p := range leaf.model.OutPorts() {
			leaf.resolveOut(p.Name(), found)
		}

		for dst := range found {
			edges[leaf.path] = append(edges[leaf.path], dst)
		}

		sort.Strings(edges[leaf.path])
	}

	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int)

	var stack []string

	var visit func(string) error
	visit = func(v string) error {
		state[v] = visiting
		stack = append(stack, v)

		for _, w := range edges[v] {
			switch state[w] {
			case visiting:
				return cycleError(stack, w)
			case unvisited:
				if err := visit(w); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[v] = done

		return nil
	}

	for _, leaf := range leaves {
		if state[leaf.path] != unvisited {
			continue
		}

		if err := visit(leaf.path); err != nil {
			return err
		}
	}

	return nil
}

func cycleError(stack []string, back string) error {
	start := 0

	for i, v := range stack {
		if v == back {
			start = i
			break
		}
	}

	loop := append(append([]string(nil), stack[start:]...), back)

	return fmt.Errorf("%w: %s", ErrCouplingCycle, strings.Join(loop, " -> "))
}
