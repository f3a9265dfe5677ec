package graph

import (
	"errors"
	"testing"
)

func TestConnectValidation(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	other := newTestContext(t)
	g := New(c)

	gain, err := c.NewGain()
	if err != nil {
		t.Fatal(err)
	}

	foreign, err := other.NewGain()
	if err != nil {
		t.Fatal(err)
	}

	osc, err := c.NewOscillator()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"into source", g.Connect(gain, c.Source()), ErrNoInput},
		{"into oscillator", g.Connect(gain, osc), ErrNoInput},
		{"from destination", g.Connect(c.Destination(), gain), ErrNoOutput},
		{"foreign node", g.Connect(gain, foreign), ErrForeignNode},
		{"nil node", g.Connect(nil, gain), ErrInvalidArgument},
		{"nil param", g.ConnectParam(osc, nil), ErrInvalidArgument},
	}

	for _, tc := range tests {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, tc.err, tc.want)
		}
	}

	if g.ConnectionCount() != 0 {
		t.Fatalf("failed connects must not add edges, got %d", g.ConnectionCount())
	}
}

func TestCountsAndDuplicateConnections(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	gain, err := c.NewGain()
	if err != nil {
		t.Fatal(err)
	}

	osc, err := c.NewOscillator()
	if err != nil {
		t.Fatal(err)
	}

	g.Add(gain, osc, gain)

	if err := g.Chain(c.Source(), gain, c.Destination()); err != nil {
		t.Fatal(err)
	}

	if err := g.Connect(c.Source(), gain); err != nil {
		t.Fatal(err)
	}

	if err := g.ConnectParam(osc, gain.Gain()); err != nil {
		t.Fatal(err)
	}

	if g.NodeCount() != 4 || g.OwnedCount() != 2 || g.ConnectionCount() != 3 {
		t.Fatalf("counts = %d nodes, %d owned, %d connections", g.NodeCount(), g.OwnedCount(), g.ConnectionCount())
	}

	p, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}

	if p.Nodes() != 4 || p.Connections() != 3 {
		t.Fatalf("program counts = %d/%d", p.Nodes(), p.Connections())
	}
}

func TestTeardownReleasesOwnedNodes(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	before := c.LiveNodes()
	g := New(c)

	gain, err := c.NewGain()
	if err != nil {
		t.Fatal(err)
	}

	osc, err := c.NewOscillator()
	if err != nil {
		t.Fatal(err)
	}

	osc.Start()
	g.Add(gain, osc)

	if err := g.Chain(c.Source(), gain, c.Destination()); err != nil {
		t.Fatal(err)
	}

	if c.LiveNodes() != before+2 {
		t.Fatalf("LiveNodes = %d, want %d", c.LiveNodes(), before+2)
	}

	g.Teardown()
	g.Teardown()

	if c.LiveNodes() != before {
		t.Fatalf("LiveNodes after teardown = %d, want %d", c.LiveNodes(), before)
	}

	if g.ConnectionCount() != 0 {
		t.Fatalf("connections after teardown = %d", g.ConnectionCount())
	}

	if osc.Playing() {
		t.Fatal("oscillator still playing after teardown")
	}

	if err := g.Connect(c.Source(), c.Destination()); !errors.Is(err, ErrReleased) {
		t.Fatalf("Connect after release: %v", err)
	}

	if _, err := g.Compile(); !errors.Is(err, ErrReleased) {
		t.Fatalf("Compile after release: %v", err)
	}
}

func TestCompileRejectsCycleWithoutDelay(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	a, _ := c.NewGain()
	b, _ := c.NewGain()
	g.Add(a, b)

	if err := g.Chain(c.Source(), a, b, a); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Compile(); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestCompileOrdersProducersFirst(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	// Created in reverse of signal order.
	last, _ := c.NewGain()
	first, _ := c.NewGain()
	g.Add(last, first)

	if err := g.Chain(c.Source(), first, last, c.Destination()); err != nil {
		t.Fatal(err)
	}

	p, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}

	pos := map[*nodeBase]int{}
	for i, st := range p.steps {
		pos[st.node] = i
	}

	if !(pos[c.Source().base()] < pos[first.base()] && pos[first.base()] < pos[last.base()] && pos[last.base()] < pos[c.Destination().base()]) {
		t.Fatalf("bad order: %v", pos)
	}
}

func TestFeedbackDelayEchoes(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	d, err := c.NewDelay(1)
	if err != nil {
		t.Fatal(err)
	}

	fb, _ := c.NewGain()
	fb.Gain().Set(0.5)
	d.DelayTime().Set(128.0 / testRate)
	g.Add(d, fb)

	for _, pair := range [][2]Node{{c.Source(), d}, {d, fb}, {fb, d}, {d, c.Destination()}} {
		if err := g.Connect(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	mustPublish(t, g)

	out := render(c, impulse(512, 0), 128)

	for i, want := range map[int]float32{0: 0, 127: 0, 128: 1, 129: 0, 256: 0.5, 384: 0.25} {
		if !nearly(out[i], want, 1e-6) {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestFeedbackDelayClampsToOneQuantum(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	g := New(c)

	d, err := c.NewDelay(1)
	if err != nil {
		t.Fatal(err)
	}

	fb, _ := c.NewGain()
	fb.Gain().Set(0)
	d.DelayTime().Set(10.0 / testRate)
	g.Add(d, fb)

	for _, pair := range [][2]Node{{c.Source(), d}, {d, fb}, {fb, d}, {d, c.Destination()}} {
		if err := g.Connect(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	mustPublish(t, g)

	out := render(c, impulse(256, 0), 128)
	if !nearly(out[128], 1, 1e-6) || !nearly(out[10], 0, 1e-6) {
		t.Fatalf("out[10] = %v, out[128] = %v; want the delay clamped to 128 frames", out[10], out[128])
	}
}

func TestMergeMovesOwnership(t *testing.T) {
	t.Parallel()

	c := newTestContext(t)
	sub := New(c)

	gain, _ := c.NewGain()
	sub.Add(gain)

	if err := sub.Connect(c.Source(), gain); err != nil {
		t.Fatal(err)
	}

	g := New(c)
	if err := g.Merge(sub); err != nil {
		t.Fatal(err)
	}

	if g.OwnedCount() != 1 || g.ConnectionCount() != 1 {
		t.Fatalf("merged counts = %d/%d", g.OwnedCount(), g.ConnectionCount())
	}

	before := c.LiveNodes()
	sub.Release()

	if c.LiveNodes() != before {
		t.Fatal("releasing a merged graph must not unregister moved nodes")
	}

	if err := g.Merge(sub); !errors.Is(err, ErrReleased) {
		t.Fatalf("merging a consumed graph: %v", err)
	}
}
