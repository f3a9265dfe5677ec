package graph

import (
	"fmt"
	"slices"
)

type paramInput struct {
	param *Param
	from  []*nodeBase
}

type step struct {
	node   *nodeBase
	inputs []*nodeBase
	mods   []paramInput
	// deferred steps belong to delays inside a cycle: the output is read at
	// the start of the quantum and the summed input written at the end.
	deferred bool
}

// Program is a compiled, immutable render order.
type Program struct {
	ctx         *Context
	steps       []step
	deferred    []int
	hasDest     bool
	nodes       int
	connections int
}

// Nodes returns the number of nodes the program renders.
func (p *Program) Nodes() int { return p.nodes }

// Connections returns the number of connections in the program.
func (p *Program) Connections() int { return p.connections }

// Compile orders the graph for rendering. Nodes are sorted topologically
// (Kahn) with ties broken by creation order. Cycles are broken at the
// delays they contain; a cycle without a delay is an error.
func (g *Graph) Compile() (*Program, error) {
	if g.released {
		return nil, ErrReleased
	}

	nodes := g.Nodes()
	index := make(map[*nodeBase]int, len(nodes))

	for i, n := range nodes {
		index[n.base()] = i
	}

	adj := make([][]int, len(nodes))
	for _, e := range g.edges {
		adj[index[e.from]] = append(adj[index[e.from]], index[e.to])
	}

	deferred := make([]bool, len(nodes))

	for _, comp := range stronglyConnected(adj) {
		if !isCycle(comp, adj) {
			continue
		}

		hasDelay := false

		for _, i := range comp {
			if _, ok := nodes[i].(*Delay); ok {
				deferred[i] = true
				hasDelay = true
			}
		}

		if !hasDelay {
			return nil, fmt.Errorf("%w: %s", ErrCycle, describe(nodes, comp))
		}
	}

	indeg := make([]int, len(nodes))
	deps := make([][]int, len(nodes))

	for _, e := range g.edges {
		from, to := index[e.from], index[e.to]
		if deferred[to] && e.param == nil {
			continue
		}

		deps[from] = append(deps[from], to)
		indeg[to]++
	}

	order := make([]int, 0, len(nodes))
	ready := make([]int, 0, len(nodes))

	for i := range nodes {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	for len(ready) > 0 {
		slices.Sort(ready)
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)

		for _, next := range deps[cur] {
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []int

		for i := range nodes {
			if indeg[i] > 0 {
				stuck = append(stuck, i)
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrCycle, describe(nodes, stuck))
	}

	p := &Program{
		ctx:         g.ctx,
		steps:       make([]step, len(order)),
		nodes:       len(nodes),
		connections: len(g.edges),
	}

	for si, ni := range order {
		b := nodes[ni].base()
		st := step{node: b, deferred: deferred[ni]}

		for _, e := range g.edges {
			if e.to != b {
				continue
			}

			if e.param == nil {
				st.inputs = append(st.inputs, e.from)
				continue
			}

			at := slices.IndexFunc(st.mods, func(m paramInput) bool { return m.param == e.param })
			if at < 0 {
				st.mods = append(st.mods, paramInput{param: e.param})
				at = len(st.mods) - 1
			}

			st.mods[at].from = append(st.mods[at].from, e.from)
		}

		if st.deferred {
			p.deferred = append(p.deferred, si)
		}

		if b == g.ctx.dest.base() {
			p.hasDest = true
		}

		p.steps[si] = st
	}

	return p, nil
}

func (p *Program) render(q *quantum) {
	for i := range p.steps {
		st := &p.steps[i]
		b := st.node

		for _, prm := range b.params {
			prm.modActive = false
		}

		for _, m := range st.mods {
			m.param.modulate(m.from, q.n)
		}

		if st.deferred {
			b.self.(*Delay).readAhead(q, b.out)
			continue
		}

		b.gather(st.inputs, q.n)

		if b.proc != nil {
			b.proc.process(q, Bus{b.in[0][:q.n], b.in[1][:q.n]}, Bus{b.out[0][:q.n], b.out[1][:q.n]})
		}
	}

	for _, si := range p.deferred {
		st := &p.steps[si]
		st.node.gather(st.inputs, q.n)
		st.node.self.(*Delay).commit(q, st.node.in)
	}
}

func describe(nodes []Node, idx []int) string {
	s := ""
	for i, n := range idx {
		if i > 0 {
			s += " -> "
		}

		s += fmt.Sprintf("%s#%d", nodes[n].Kind(), nodes[n].ID())
	}

	return s
}

// stronglyConnected returns the strongly connected components of adj
// (Tarjan).
func stronglyConnected(adj [][]int) [][]int {
	n := len(adj)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)

	for i := range index {
		index[i] = -1
	}

	var (
		stack []int
		comps [][]int
		next  int
	)

	var visit func(v int)
	visit = func(v int) {
		index[v] = next
		low[v] = next
		next++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			switch {
			case index[w] < 0:
				visit(w)
				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}

		var comp []int

		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false

			comp = append(comp, w)
			if w == v {
				break
			}
		}

		slices.Sort(comp)
		comps = append(comps, comp)
	}

	for v := range n {
		if index[v] < 0 {
			visit(v)
		}
	}

	return comps
}

func isCycle(comp []int, adj [][]int) bool {
	if len(comp) > 1 {
		return true
	}

	return slices.Contains(adj[comp[0]], comp[0])
}
