package graph

import (
	"github.com/cwbudde/algo-synth/synth/filter/biquad"
	"github.com/cwbudde/algo-synth/synth/filter/design"
)

// Filter is a lowpass biquad node. Cutoff and resonance changes
// recompute the coefficients without resetting filter state.
type Filter struct {
	node

	section *biquad.Section
	cutoff  float64
	q       float64
}

// NewLowpass creates and registers a lowpass filter with the given
// cutoff frequency in Hz and quality factor.
func (e *Engine) NewLowpass(cutoffHz, q float64) *Filter {
	f := &Filter{
		node:    node{eng: e},
		section: biquad.NewSection(design.Lowpass(cutoffHz, q, e.cfg.SampleRate)),
		cutoff:  cutoffHz,
		q:       q,
	}
	e.register(f)
	return f
}

// Cutoff returns the cutoff frequency in Hz.
func (f *Filter) Cutoff() float64 { return f.cutoff }

// Q returns the quality factor.
func (f *Filter) Q() float64 { return f.q }

// SetCutoff updates the cutoff frequency in Hz.
func (f *Filter) SetCutoff(cutoffHz float64) {
	f.cutoff = cutoffHz
	f.section.SetCoefficients(design.Lowpass(f.cutoff, f.q, f.eng.cfg.SampleRate))
}

// SetQ updates the quality factor.
func (f *Filter) SetQ(q float64) {
	f.q = q
	f.section.SetCoefficients(design.Lowpass(f.cutoff, f.q, f.eng.cfg.SampleRate))
}

func (f *Filter) process(in, out []float64, _ float64) {
	f.section.ProcessBlockTo(out, in)
}
