package graph

import "sort"

type paramEventKind int

const (
	eventSetValue paramEventKind = iota
	eventLinearRamp
)

type paramEvent struct {
	kind  paramEventKind
	time  float64
	value float64
}

// Param is a time-schedulable node parameter. Values are scheduled on the
// engine's timeline in seconds; the render loop evaluates the schedule per
// sample. Signal sources connected to the Param via
// [Engine.ConnectParam] are summed and added to the scheduled value.
//
// The schedule follows the usual audio-parameter contract: a set event
// holds its value until the next event, and a linear ramp interpolates
// from the preceding event's value and time to its own. Before the first
// event the default value holds. A ramp with no preceding event takes
// effect as a step at its own time.
//
// Param is not safe for concurrent use; schedule from the goroutine that
// drives the engine.
type Param struct {
	owner        Node
	defaultValue float64
	events       []paramEvent
}

func newParam(owner Node, defaultValue float64) *Param {
	return &Param{owner: owner, defaultValue: defaultValue}
}

// DefaultValue returns the value used before any scheduled event.
func (p *Param) DefaultValue() float64 {
	return p.defaultValue
}

// SetValueAtTime schedules the parameter to jump to value at time t.
func (p *Param) SetValueAtTime(value, t float64) {
	p.insert(paramEvent{kind: eventSetValue, time: t, value: value})
}

// LinearRampToValueAtTime schedules a linear ramp ending at value at
// time t, starting from the preceding event's value and time.
func (p *Param) LinearRampToValueAtTime(value, t float64) {
	p.insert(paramEvent{kind: eventLinearRamp, time: t, value: value})
}

// CancelScheduledValues removes all events scheduled at or after time t.
// Events already in the past are unaffected.
func (p *Param) CancelScheduledValues(t float64) {
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.time < t {
			kept = append(kept, ev)
		}
	}
	p.events = kept
}

// ValueAt evaluates the scheduled (intrinsic) value at time t. Audio-rate
// modulation from connected sources is not included; the render loop adds
// it on top.
func (p *Param) ValueAt(t float64) float64 {
	// Index of the first event strictly after t.
	next := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > t
	})

	if next == 0 {
		return p.defaultValue
	}

	cur := p.events[next-1]
	if next == len(p.events) {
		return cur.value
	}

	if nx := p.events[next]; nx.kind == eventLinearRamp {
		span := nx.time - cur.time
		if span <= 0 {
			return nx.value
		}
		return cur.value + (nx.value-cur.value)*(t-cur.time)/span
	}

	return cur.value
}

// constantIn reports whether the scheduled value is constant over the
// half-open interval [t0, t1) and, if so, returns that value. The render
// loop uses this to take the block-scaling fast path.
func (p *Param) constantIn(t0, t1 float64) (float64, bool) {
	next := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > t0
	})

	if next < len(p.events) {
		nx := p.events[next]
		if nx.time < t1 {
			return 0, false
		}
		if nx.kind == eventLinearRamp && next > 0 {
			// Mid-ramp: the value changes every sample.
			return 0, false
		}
	}

	if next == 0 {
		return p.defaultValue, true
	}

	return p.events[next-1].value, true
}

func (p *Param) insert(ev paramEvent) {
	// Insert keeping the list sorted by time; later submissions at the
	// same timestamp go after earlier ones.
	at := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].time > ev.time
	})

	p.events = append(p.events, paramEvent{})
	copy(p.events[at+1:], p.events[at:])
	p.events[at] = ev
}
