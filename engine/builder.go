package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-livefx/dsp/graph"
	"github.com/cwbudde/algo-livefx/fx"
)

// Stats describes the published graph.
type Stats struct {
	// Effects lists the kinds that were built, in signal order.
	Effects []fx.Kind
	// Nodes and Connections count the compiled program.
	Nodes       int
	Connections int
	// LiveNodes counts every node registered with the processing context.
	LiveNodes int
}

// builder maps effect chains to graphs between the mic gain and the three
// sinks. It is used under the engine mutex.
type builder struct {
	log     logrus.FieldLogger
	ctx     *graph.Context
	factory *fx.Factory

	micGain *graph.Gain
	sinks   []graph.Node

	current   *graph.Graph
	instances []*fx.Instance
}

// rebuild wires chain into a new graph, publishes it and tears down the
// previous one. On error the previous graph stays live.
func (b *builder) rebuild(ctx context.Context, chain fx.Chain) error {
	g := graph.New(b.ctx)

	instances, err := b.wire(g, chain)
	if err != nil {
		g.Teardown()
		return err
	}

	prog, err := g.Compile()
	if err != nil {
		g.Teardown()
		return fmt.Errorf("engine: compile: %w", err)
	}

	if _, err := b.ctx.Publish(ctx, prog); err != nil {
		// The new program may already be rendering; keep it.
		b.swap(g, instances)
		return fmt.Errorf("engine: publish: %w", err)
	}

	b.swap(g, instances)

	b.log.WithFields(logrus.Fields{
		"effects":     len(instances),
		"nodes":       prog.Nodes(),
		"connections": prog.Connections(),
	}).Debug("graph rebuilt")

	return nil
}

func (b *builder) swap(g *graph.Graph, instances []*fx.Instance) {
	if b.current != nil {
		b.current.Teardown()
	}

	b.current = g
	b.instances = instances
}

func (b *builder) wire(g *graph.Graph, chain fx.Chain) ([]*fx.Instance, error) {
	if err := g.Connect(b.ctx.Source(), b.micGain); err != nil {
		return nil, err
	}

	var (
		last      graph.Node = b.micGain
		instances []*fx.Instance
	)

	for i, d := range chain {
		if !d.Enabled {
			continue
		}

		inst, err := b.factory.Build(d)
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"index": i,
				"kind":  d.Kind,
			}).WithError(err).Warn("effect skipped")

			continue
		}

		if err := inst.Attach(g); err != nil {
			inst.Discard()
			return nil, err
		}

		next, err := b.link(g, last, inst)
		if err != nil {
			return nil, fmt.Errorf("engine: wire %s: %w", d.Kind, err)
		}

		last = next
		instances = append(instances, inst)
	}

	for _, sink := range b.sinks {
		if err := g.Connect(last, sink); err != nil {
			return nil, err
		}
	}

	return instances, nil
}

// link connects last into inst and returns the node the chain continues
// from. Mixable effects get a summing node fed by their wet and dry gains.
func (b *builder) link(g *graph.Graph, last graph.Node, inst *fx.Instance) (graph.Node, error) {
	if err := g.Connect(last, inst.Entry); err != nil {
		return nil, err
	}

	if !inst.Kind.Mixable() {
		return inst.Exit, nil
	}

	sum, err := b.ctx.NewGain()
	if err != nil {
		return nil, err
	}

	g.Add(sum)

	for _, pair := range [][2]graph.Node{{last, inst.Dry}, {inst.Wet, sum}, {inst.Dry, sum}} {
		if err := g.Connect(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}

	return sum, nil
}

// instance returns the first live instance of kind.
func (b *builder) instance(kind fx.Kind) *fx.Instance {
	for _, inst := range b.instances {
		if inst.Kind == kind {
			return inst
		}
	}

	return nil
}

func (b *builder) stats() Stats {
	s := Stats{LiveNodes: b.ctx.LiveNodes()}
	for _, inst := range b.instances {
		s.Effects = append(s.Effects, inst.Kind)
	}

	if p := b.ctx.Program(); p != nil {
		s.Nodes = p.Nodes()
		s.Connections = p.Connections()
	}

	return s
}

// teardown releases the current graph.
func (b *builder) teardown() {
	if b.current != nil {
		b.current.Teardown()
	}

	b.current = nil
	b.instances = nil
}
