package graph

// Bus is a summing sink. Any number of sources may connect to it; their
// signals mix additively. The engine's destination is a Bus, and
// additional buses can serve as shared submix points for multiple
// voices.
type Bus struct {
	node
}

// NewBus creates and registers a summing bus.
func (e *Engine) NewBus() *Bus {
	b := &Bus{node: node{eng: e}}
	e.register(b)
	return b
}

func (b *Bus) process(in, out []float64, _ float64) {
	copy(out, in)
}
