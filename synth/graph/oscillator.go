package graph

import "math"

// Waveform selects the oscillator wave shape.
type Waveform int

const (
	Sine Waveform = iota
	Sawtooth
	Triangle
	Square
)

// String returns the waveform name.
func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	default:
		return "unknown"
	}
}

// Oscillator is a periodic signal source. It is silent until its
// scheduled start time and again from its scheduled stop time on; the
// phase begins at zero at the first active sample. Once the clock passes
// the stop time the engine fires the registered ended callbacks exactly
// once.
type Oscillator struct {
	node

	wave Waveform
	freq *Param

	phase float64

	started bool
	hasStop bool
	startAt float64
	stopAt  float64
	ended   bool
	onEnded []func()
}

// NewOscillator creates and registers an oscillator with the given
// waveform and initial frequency in Hz.
func (e *Engine) NewOscillator(wave Waveform, freqHz float64) *Oscillator {
	o := &Oscillator{node: node{eng: e}, wave: wave}
	o.freq = newParam(o, freqHz)
	e.register(o)
	e.oscillators = append(e.oscillators, o)
	return o
}

// Waveform returns the oscillator wave shape.
func (o *Oscillator) Waveform() Waveform {
	return o.wave
}

// Frequency returns the schedulable frequency parameter in Hz.
func (o *Oscillator) Frequency() *Param {
	return o.freq
}

// StartAt schedules the oscillator to begin producing signal at time t.
func (o *Oscillator) StartAt(t float64) {
	o.started = true
	o.startAt = t
}

// StopAt schedules the oscillator to fall silent at time t. Calling it
// again replaces the previous stop time if the oscillator has not ended
// yet.
func (o *Oscillator) StopAt(t float64) {
	if o.ended {
		return
	}
	o.hasStop = true
	o.stopAt = t
}

// OnEnded registers a callback fired once after the scheduled stop time
// has been rendered past.
func (o *Oscillator) OnEnded(fn func()) {
	if fn != nil {
		o.onEnded = append(o.onEnded, fn)
	}
}

func (o *Oscillator) process(_, out []float64, start float64) {
	sr := o.eng.SampleRate()
	mod := o.eng.paramInput(o.freq)

	for i := range out {
		t := start + float64(i)/sr

		if !o.started || t < o.startAt || (o.hasStop && t >= o.stopAt) {
			out[i] = 0
			continue
		}

		out[i] = waveSample(o.wave, o.phase)

		f := o.freq.ValueAt(t)
		if mod != nil {
			f += mod[i]
		}
		o.phase += f / sr
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
	}
}

// markEnded transitions the oscillator to ended when the clock has
// passed its stop time. It reports whether the transition happened on
// this call.
func (o *Oscillator) markEnded(now float64) bool {
	if o.ended || !o.started || !o.hasStop || now < o.stopAt {
		return false
	}
	o.ended = true
	return true
}

func (o *Oscillator) endedCallbacks() []func() {
	return o.onEnded
}

// waveSample evaluates one waveform cycle at phase in [0, 1).
func waveSample(w Waveform, phase float64) float64 {
	switch w {
	case Sine:
		return math.Sin(2 * math.Pi * phase)
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	default:
		return 0
	}
}
