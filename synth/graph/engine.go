// Package graph implements a block-rendering audio signal graph: an
// [Engine] that owns a monotonic sample clock and a set of processing
// nodes ([Oscillator], [Gain], [Filter], [Bus]) wired by directed
// connections. Signal connections feed node inputs; parameter
// connections feed a node's [Param] for audio-rate modulation.
//
// The engine is single-threaded and cooperative: scheduling calls stamp
// events onto the timeline and return immediately, and all processing
// happens inside [Engine.RenderBlock] in topological order. Time
// advances only through rendering.
package graph

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/buffer"
	"github.com/cwbudde/algo-synth/synth/core"
)

var (
	// ErrNotRegistered is returned when an operation references a node
	// that does not belong to this engine.
	ErrNotRegistered = errors.New("graph: node not registered with engine")
	// ErrCycle is returned when a connection would create a feedback loop.
	ErrCycle = errors.New("graph: connection would create a cycle")
)

// Node is the common contract of all graph processors. Nodes are created
// through the engine's constructors and are owned by it; the interface is
// closed to types in this package.
type Node interface {
	process(in, out []float64, start float64)
	engine() *Engine
}

// node carries the engine back-reference shared by all node types.
type node struct {
	eng *Engine
}

func (n *node) engine() *Engine { return n.eng }

type nodeState struct {
	out *buffer.Buffer
}

// Engine owns the sample clock, the node registry and the connection
// tables, and drives block rendering.
type Engine struct {
	cfg    core.Config
	frames uint64

	nodes []Node
	state map[Node]*nodeState

	outgoing map[Node][]Node
	incoming map[Node][]Node

	paramOutgoing map[Node][]*Param
	paramIncoming map[*Param][]Node

	order      []Node
	orderDirty bool

	dest *Bus

	zeroBuf  []float64
	mixBuf   *buffer.Buffer
	paramBuf map[*Param]*buffer.Buffer

	oscillators []*Oscillator
	endedQueue  []func()
}

// New creates an engine with the given options and an attached
// destination [Bus].
func New(opts ...core.Option) *Engine {
	e := &Engine{
		cfg:           core.ApplyOptions(opts...),
		state:         make(map[Node]*nodeState),
		outgoing:      make(map[Node][]Node),
		incoming:      make(map[Node][]Node),
		paramOutgoing: make(map[Node][]*Param),
		paramIncoming: make(map[*Param][]Node),
		paramBuf:      make(map[*Param]*buffer.Buffer),
	}
	e.zeroBuf = make([]float64, e.cfg.BlockSize)
	e.mixBuf = buffer.New(e.cfg.BlockSize)
	e.dest = e.NewBus()

	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() core.Config {
	return e.cfg
}

// SampleRate returns the engine sample rate in Hz.
func (e *Engine) SampleRate() float64 {
	return e.cfg.SampleRate
}

// CurrentTime returns the rendered time in seconds. It is monotonic and
// advances only through rendering.
func (e *Engine) CurrentTime() float64 {
	return float64(e.frames) / e.cfg.SampleRate
}

// Destination returns the engine's output bus.
func (e *Engine) Destination() *Bus {
	return e.dest
}

// Connect wires src's output into dst's input. Connecting an already
// connected pair is a no-op; connections that would close a loop are
// rejected with [ErrCycle].
func (e *Engine) Connect(src, dst Node) error {
	if err := e.checkRegistered(src, dst); err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("%w: self connection", ErrCycle)
	}

	for _, d := range e.outgoing[src] {
		if d == dst {
			return nil
		}
	}

	if e.reaches(dst, src) {
		return ErrCycle
	}

	e.outgoing[src] = append(e.outgoing[src], dst)
	e.incoming[dst] = append(e.incoming[dst], src)
	e.orderDirty = true

	return nil
}

// ConnectParam wires src's output into a parameter of another node. The
// signal is summed with the parameter's scheduled value every sample.
func (e *Engine) ConnectParam(src Node, p *Param) error {
	if err := e.checkRegistered(src, p.owner); err != nil {
		return err
	}
	if p.owner == src {
		return fmt.Errorf("%w: self modulation", ErrCycle)
	}

	for _, s := range e.paramIncoming[p] {
		if s == src {
			return nil
		}
	}

	if e.reaches(p.owner, src) {
		return ErrCycle
	}

	e.paramOutgoing[src] = append(e.paramOutgoing[src], p)
	e.paramIncoming[p] = append(e.paramIncoming[p], src)
	e.orderDirty = true

	return nil
}

// Disconnect removes every signal and parameter connection touching n,
// in both directions. Disconnecting an unconnected or unregistered node
// is a no-op. Other nodes' connections are untouched.
func (e *Engine) Disconnect(n Node) {
	for _, dst := range e.outgoing[n] {
		e.incoming[dst] = removeNode(e.incoming[dst], n)
	}
	delete(e.outgoing, n)

	for _, src := range e.incoming[n] {
		e.outgoing[src] = removeNode(e.outgoing[src], n)
	}
	delete(e.incoming, n)

	for _, p := range e.paramOutgoing[n] {
		e.paramIncoming[p] = removeNode(e.paramIncoming[p], n)
	}
	delete(e.paramOutgoing, n)

	// Connections into n's own params.
	for p, srcs := range e.paramIncoming {
		if p.owner != n {
			continue
		}
		for _, src := range srcs {
			e.paramOutgoing[src] = removeParam(e.paramOutgoing[src], p)
		}
		delete(e.paramIncoming, p)
		delete(e.paramBuf, p)
	}

	e.orderDirty = true
}

// Remove disconnects n and unregisters it from the engine. The
// destination bus cannot be removed. Removing an unregistered node is a
// no-op.
func (e *Engine) Remove(n Node) {
	if n == nil || Node(e.dest) == n {
		return
	}
	if _, ok := e.state[n]; !ok {
		return
	}

	e.Disconnect(n)
	delete(e.state, n)
	e.nodes = removeNode(e.nodes, n)

	if osc, ok := n.(*Oscillator); ok {
		e.oscillators = removeOscillator(e.oscillators, osc)
	}

	e.orderDirty = true
}

// NumInputs returns the number of signal connections feeding n.
func (e *Engine) NumInputs(n Node) int {
	return len(e.incoming[n])
}

// RenderBlock renders one block of audio and returns the destination
// output. The returned slice is valid until the next render call.
// Oscillator "ended" callbacks fire synchronously after the block, once
// each.
func (e *Engine) RenderBlock() []float64 {
	if e.orderDirty {
		e.sortNodes()
	}

	start := e.CurrentTime()

	for _, n := range e.order {
		st := e.state[n]
		st.out.Resize(e.cfg.BlockSize)
		n.process(e.gatherInput(n), st.out.Samples(), start)
	}

	e.frames += uint64(e.cfg.BlockSize)

	e.fireEnded()

	return e.state[Node(e.dest)].out.Samples()
}

// Render fills dst by rendering as many blocks as needed. len(dst) does
// not have to be a multiple of the block size; the tail of the final
// block is dropped.
func (e *Engine) Render(dst []float64) {
	for filled := 0; filled < len(dst); {
		block := e.RenderBlock()
		filled += copy(dst[filled:], block)
	}
}

func (e *Engine) register(n Node) {
	e.nodes = append(e.nodes, n)
	e.state[n] = &nodeState{out: buffer.New(e.cfg.BlockSize)}
	e.orderDirty = true
}

func (e *Engine) checkRegistered(nodes ...Node) error {
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node", ErrNotRegistered)
		}
		if n.engine() != e {
			return fmt.Errorf("%w: node belongs to another engine", ErrNotRegistered)
		}
		if _, ok := e.state[n]; !ok {
			return ErrNotRegistered
		}
	}
	return nil
}

// reaches reports whether to is reachable from from following signal and
// parameter edges.
func (e *Engine) reaches(from, to Node) bool {
	if from == to {
		return true
	}
	for _, n := range e.outgoing[from] {
		if e.reaches(n, to) {
			return true
		}
	}
	for _, p := range e.paramOutgoing[from] {
		if e.reaches(p.owner, to) {
			return true
		}
	}
	return false
}

// sortNodes rebuilds the topological processing order (Kahn's algorithm).
// Parameter edges participate so that modulation sources render before
// their targets.
func (e *Engine) sortNodes() {
	indegree := make(map[Node]int, len(e.nodes))
	for _, n := range e.nodes {
		indegree[n] = 0
	}
	for _, dsts := range e.outgoing {
		for _, d := range dsts {
			indegree[d]++
		}
	}
	for _, params := range e.paramOutgoing {
		for _, p := range params {
			indegree[p.owner]++
		}
	}

	queue := make([]Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]Node, 0, len(e.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, d := range e.outgoing[n] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
		for _, p := range e.paramOutgoing[n] {
			indegree[p.owner]--
			if indegree[p.owner] == 0 {
				queue = append(queue, p.owner)
			}
		}
	}

	e.order = order
	e.orderDirty = false
}

// gatherInput returns the summed input block for n. Nodes without inputs
// receive the shared zero buffer.
func (e *Engine) gatherInput(n Node) []float64 {
	srcs := e.incoming[n]
	switch len(srcs) {
	case 0:
		return e.zeroBuf
	case 1:
		return e.state[srcs[0]].out.Samples()
	}

	e.mixBuf.Resize(e.cfg.BlockSize)
	mix := e.mixBuf.Samples()
	copy(mix, e.state[srcs[0]].out.Samples())
	for _, src := range srcs[1:] {
		vecmath.AddBlockInPlace(mix, e.state[src].out.Samples())
	}
	return mix
}

// paramInput returns the summed modulation block for p, or nil when
// nothing is connected to it.
func (e *Engine) paramInput(p *Param) []float64 {
	srcs := e.paramIncoming[p]
	if len(srcs) == 0 {
		return nil
	}

	buf, ok := e.paramBuf[p]
	if !ok {
		buf = buffer.New(e.cfg.BlockSize)
		e.paramBuf[p] = buf
	}
	buf.Resize(e.cfg.BlockSize)

	mod := buf.Samples()
	copy(mod, e.state[srcs[0]].out.Samples())
	for _, src := range srcs[1:] {
		vecmath.AddBlockInPlace(mod, e.state[src].out.Samples())
	}
	return mod
}

func (e *Engine) fireEnded() {
	now := e.CurrentTime()
	for _, osc := range e.oscillators {
		if osc.markEnded(now) {
			e.endedQueue = append(e.endedQueue, osc.endedCallbacks()...)
		}
	}

	if len(e.endedQueue) == 0 {
		return
	}

	// Callbacks may mutate the graph (typical use is teardown), so drain
	// a snapshot.
	pending := e.endedQueue
	e.endedQueue = nil
	for _, fn := range pending {
		fn()
	}
}

func removeNode(list []Node, n Node) []Node {
	for i, v := range list {
		if v == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeParam(list []*Param, p *Param) []*Param {
	for i, v := range list {
		if v == p {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeOscillator(list []*Oscillator, o *Oscillator) []*Oscillator {
	for i, v := range list {
		if v == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
