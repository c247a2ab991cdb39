// Package voice implements a single polyphonic synthesizer voice: a
// fixed signal topology of three oscillators, a ring-modulation stage,
// an ADSR amplitude envelope and a lowpass filter, driven through a
// start/stop lifecycle on a [graph.Engine].
//
// A voice owns its graph nodes only between Start and disposal. Voices
// sharing an output bus are isolated from one another; each only ever
// adds its own connection into the sink and removes only its own nodes
// on teardown. Polyphony management (allocation, stealing, mixing
// policy) is the caller's concern.
package voice

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/synth/graph"
)

// Fixed envelope and topology constants.
const (
	attackTime   = 0.02 // seconds to reach peak amplitude
	decayTime    = 0.01 // seconds from peak down to sustain
	sustainLevel = 0.5  // fraction of peak amplitude held until Stop
	releaseTime  = 0.5  // seconds from current level to silence

	// stopGuard delays the oscillator stop past the release ramp so the
	// ramp never truncates audibly.
	stopGuard = 0.01

	harmonicRatio    = 2.0
	subharmonicRatio = 0.5
	harmonicGain     = 0.5
	subharmonicGain  = 1.0
	modulatorDivisor = 128.0

	cutoffOffset = 2000.0
	filterQ      = 2.0
)

// ErrLifecycle is returned when an operation is called outside its
// valid lifecycle state.
var ErrLifecycle = errors.New("voice: lifecycle violation")

// State is the voice lifecycle state.
type State int

const (
	// Created is the post-construction state; no graph nodes exist yet.
	Created State = iota
	// Running means the envelope is executing attack/decay/sustain.
	Running
	// Releasing means the envelope is ramping to zero and the
	// oscillators are scheduled to stop.
	Releasing
	// Disposed is terminal; all node references have been released.
	Disposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Releasing:
		return "releasing"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Voice is one instance of the fixed synthesizer topology. It is not
// restartable: Start may be called at most once per instance.
//
// Like the engine it schedules on, Voice is single-threaded; drive it
// from the goroutine that renders the engine.
type Voice struct {
	eng       *graph.Engine
	frequency float64
	maxAmp    float64
	output    graph.Node

	state State

	primary     *graph.Oscillator
	harmonic    *graph.Oscillator
	subharmonic *graph.Oscillator
	modulator   *graph.Oscillator

	harmonicScale    *graph.Gain
	subharmonicScale *graph.Gain
	ring             *graph.Gain
	envelope         *graph.Gain
	lowpass          *graph.Filter
}

// New creates a voice that will play frequency Hz at peak amplitude
// maxAmp into output. It performs no graph work; nodes are created by
// Start. frequency must be positive and finite, maxAmp must lie in
// [0, 1], and output must be a node of eng.
func New(eng *graph.Engine, frequency, maxAmp float64, output graph.Node) (*Voice, error) {
	if eng == nil {
		return nil, errors.New("voice: nil engine")
	}
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("voice: frequency must be > 0 and finite: %f", frequency)
	}
	if maxAmp < 0 || maxAmp > 1 || math.IsNaN(maxAmp) {
		return nil, fmt.Errorf("voice: max amplitude must be in [0, 1]: %f", maxAmp)
	}
	if output == nil {
		return nil, errors.New("voice: nil output node")
	}

	return &Voice{
		eng:       eng,
		frequency: frequency,
		maxAmp:    maxAmp,
		output:    output,
	}, nil
}

// State returns the current lifecycle state.
func (v *Voice) State() State {
	return v.state
}

// Frequency returns the base frequency in Hz.
func (v *Voice) Frequency() float64 {
	return v.frequency
}

// MaxAmp returns the peak amplitude.
func (v *Voice) MaxAmp() float64 {
	return v.maxAmp
}

// Start builds and wires the signal graph, schedules the attack/decay
// envelope, and starts all oscillators at the current engine time. The
// voice then sustains until Stop. Starting from any state but Created
// returns ErrLifecycle.
func (v *Voice) Start() error {
	if v.state != Created {
		return fmt.Errorf("%w: start from %s", ErrLifecycle, v.state)
	}

	t0 := v.eng.CurrentTime()

	v.primary = v.eng.NewOscillator(graph.Sine, v.frequency)
	v.harmonic = v.eng.NewOscillator(graph.Sawtooth, harmonicRatio*v.frequency)
	v.subharmonic = v.eng.NewOscillator(graph.Triangle, subharmonicRatio*v.frequency)
	v.modulator = v.eng.NewOscillator(graph.Sine, v.frequency/modulatorDivisor)

	v.harmonicScale = v.eng.NewGain(harmonicGain)
	v.subharmonicScale = v.eng.NewGain(subharmonicGain)
	v.ring = v.eng.NewGain(1)
	v.envelope = v.eng.NewGain(1)
	v.lowpass = v.eng.NewLowpass(v.frequency+cutoffOffset, filterQ)

	if err := v.wire(); err != nil {
		v.dispose()
		return err
	}

	env := v.envelope.Gain()
	env.SetValueAtTime(0, t0)
	env.LinearRampToValueAtTime(v.maxAmp, t0+attackTime)
	env.LinearRampToValueAtTime(sustainLevel*v.maxAmp, t0+attackTime+decayTime)

	v.primary.StartAt(t0)
	v.harmonic.StartAt(t0)
	v.subharmonic.StartAt(t0)
	v.modulator.StartAt(t0)

	v.primary.OnEnded(v.dispose)

	v.state = Running
	return nil
}

// Stop cancels the pending envelope schedule, pins the envelope at its
// current level, ramps it linearly to zero over the release time, and
// schedules all oscillators to stop shortly after the ramp completes.
// Disposal then happens automatically when the primary oscillator's
// ended event fires.
//
// Stop during Releasing is permitted and restarts the release from the
// current envelope level. Stop before Start or after disposal returns
// ErrLifecycle.
func (v *Voice) Stop() error {
	if v.state != Running && v.state != Releasing {
		return fmt.Errorf("%w: stop from %s", ErrLifecycle, v.state)
	}

	t1 := v.eng.CurrentTime()

	env := v.envelope.Gain()
	held := env.ValueAt(t1)
	env.CancelScheduledValues(t1)
	env.SetValueAtTime(held, t1)
	env.LinearRampToValueAtTime(0, t1+releaseTime)

	stopAt := t1 + releaseTime + stopGuard
	v.primary.StopAt(stopAt)
	v.harmonic.StopAt(stopAt)
	v.subharmonic.StopAt(stopAt)
	v.modulator.StopAt(stopAt)

	v.state = Releasing
	return nil
}

// Dispose tears the voice down immediately: every owned node is
// disconnected and removed from the engine and all references are
// released. It is idempotent; the voice normally disposes itself when
// the primary oscillator's ended event fires after Stop.
func (v *Voice) Dispose() {
	v.dispose()
}

func (v *Voice) dispose() {
	if v.state == Disposed {
		return
	}
	v.state = Disposed

	for _, n := range v.ownedNodes() {
		if n != nil {
			v.eng.Remove(n)
		}
	}

	v.primary = nil
	v.harmonic = nil
	v.subharmonic = nil
	v.modulator = nil
	v.harmonicScale = nil
	v.subharmonicScale = nil
	v.ring = nil
	v.envelope = nil
	v.lowpass = nil
}

// wire connects the fixed topology:
//
//	primary ─────────────────────┐
//	harmonic ──▶ ×0.5 ───────────┤
//	subharmonic ──▶ ×1.0 ────────┼──▶ ring ──▶ envelope ──▶ lowpass ──▶ output
//	modulator ──▶ ring.Gain param┘
func (v *Voice) wire() error {
	steps := []struct {
		src, dst graph.Node
	}{
		{v.primary, v.ring},
		{v.harmonic, v.harmonicScale},
		{v.harmonicScale, v.ring},
		{v.subharmonic, v.subharmonicScale},
		{v.subharmonicScale, v.ring},
		{v.ring, v.envelope},
		{v.envelope, v.lowpass},
		{v.lowpass, v.output},
	}
	for _, s := range steps {
		if err := v.eng.Connect(s.src, s.dst); err != nil {
			return fmt.Errorf("voice: wiring failed: %w", err)
		}
	}

	if err := v.eng.ConnectParam(v.modulator, v.ring.Gain()); err != nil {
		return fmt.Errorf("voice: wiring failed: %w", err)
	}

	return nil
}

func (v *Voice) ownedNodes() []graph.Node {
	return []graph.Node{
		v.primary,
		v.harmonic,
		v.subharmonic,
		v.modulator,
		v.harmonicScale,
		v.subharmonicScale,
		v.ring,
		v.envelope,
		v.lowpass,
	}
}
