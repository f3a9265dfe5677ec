package graph

import (
	"fmt"
	"slices"
)

type edge struct {
	from  *nodeBase
	to    *nodeBase
	param *Param // nil for node inputs
}

// Graph collects nodes and connections until it is compiled.
//
// A Graph owns the nodes added with Add; nodes referenced only through
// connections (the context Source and Destination, shared taps) are wired
// but not owned. Graph methods are not safe for concurrent use.
type Graph struct {
	ctx      *Context
	owned    []Node
	edges    []edge
	released bool
}

// New returns an empty graph for ctx.
func New(ctx *Context) *Graph {
	return &Graph{ctx: ctx}
}

// Add takes ownership of nodes.
func (g *Graph) Add(nodes ...Node) {
	for _, n := range nodes {
		if n == nil || slices.Contains(g.owned, n) {
			continue
		}

		g.owned = append(g.owned, n)
	}
}

// Connect wires the output of from into the input of to. Duplicate
// connections are ignored.
func (g *Graph) Connect(from, to Node) error {
	if err := g.check(from, to); err != nil {
		return err
	}

	if to.base().inputs == 0 {
		return fmt.Errorf("%w: %s", ErrNoInput, to.Kind())
	}

	g.addEdge(edge{from: from.base(), to: to.base()})

	return nil
}

// ConnectParam wires the output of from into p as audio-rate modulation.
func (g *Graph) ConnectParam(from Node, p *Param) error {
	if p == nil {
		return fmt.Errorf("%w: nil param", ErrInvalidArgument)
	}

	if err := g.check(from, p.owner.self); err != nil {
		return err
	}

	g.addEdge(edge{from: from.base(), to: p.owner, param: p})

	return nil
}

// Chain connects nodes in series.
func (g *Graph) Chain(nodes ...Node) error {
	for i := 1; i < len(nodes); i++ {
		if err := g.Connect(nodes[i-1], nodes[i]); err != nil {
			return err
		}
	}

	return nil
}

func (g *Graph) check(from, to Node) error {
	if g.released {
		return ErrReleased
	}

	if from == nil || to == nil {
		return fmt.Errorf("%w: nil node", ErrInvalidArgument)
	}

	if from.Context() != g.ctx || to.Context() != g.ctx {
		return ErrForeignNode
	}

	if from.base().outputs == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, from.Kind())
	}

	return nil
}

func (g *Graph) addEdge(e edge) {
	if !slices.Contains(g.edges, e) {
		g.edges = append(g.edges, e)
	}
}

// Merge moves the nodes and connections of other into g. other is left
// empty and released without unregistering the moved nodes.
func (g *Graph) Merge(other *Graph) error {
	if g.released || other.released {
		return ErrReleased
	}

	if other.ctx != g.ctx {
		return ErrForeignNode
	}

	g.Add(other.owned...)

	for _, e := range other.edges {
		g.addEdge(e)
	}

	other.owned = nil
	other.edges = nil
	other.released = true

	return nil
}

// Nodes returns every node in the graph, owned or wired, in creation order.
func (g *Graph) Nodes() []Node {
	seen := make(map[*nodeBase]struct{})

	var out []*nodeBase

	add := func(b *nodeBase) {
		if _, ok := seen[b]; !ok {
			seen[b] = struct{}{}
			out = append(out, b)
		}
	}

	for _, n := range g.owned {
		add(n.base())
	}

	for _, e := range g.edges {
		add(e.from)
		add(e.to)
	}

	slices.SortFunc(out, func(a, b *nodeBase) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})

	nodes := make([]Node, len(out))
	for i, b := range out {
		nodes[i] = b.self
	}

	return nodes
}

// NodeCount returns the number of distinct nodes, owned or wired.
func (g *Graph) NodeCount() int { return len(g.Nodes()) }

// OwnedCount returns the number of owned nodes.
func (g *Graph) OwnedCount() int { return len(g.owned) }

// ConnectionCount returns the number of connections, param connections
// included.
func (g *Graph) ConnectionCount() int { return len(g.edges) }

// Disconnect drops every connection.
func (g *Graph) Disconnect() {
	g.edges = nil
}

// Stop stops every owned oscillator.
func (g *Graph) Stop() {
	for _, n := range g.owned {
		if s, ok := n.(stopper); ok {
			s.Stop()
		}
	}
}

// Release unregisters the owned nodes from the context. The graph cannot be
// wired again afterwards. Release is idempotent.
func (g *Graph) Release() {
	if g.released {
		return
	}

	g.released = true
	for _, n := range g.owned {
		g.ctx.unregister(n)
	}

	g.owned = nil
}

// Teardown disconnects, stops and releases the graph.
func (g *Graph) Teardown() {
	g.Disconnect()
	g.Stop()
	g.Release()
}

type stopper interface {
	Stop()
}
