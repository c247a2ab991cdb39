package graph

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/buffer"
)

// Gain scales its input by a schedulable gain parameter. With a source
// connected to the parameter the node performs audio-rate amplitude
// modulation: out = in × (scheduled gain + modulation).
type Gain struct {
	node

	gain     *Param
	gainsBuf *buffer.Buffer
}

// NewGain creates and registers a gain stage with the given initial
// gain value.
func (e *Engine) NewGain(gain float64) *Gain {
	g := &Gain{node: node{eng: e}, gainsBuf: buffer.New(e.cfg.BlockSize)}
	g.gain = newParam(g, gain)
	e.register(g)
	return g
}

// Gain returns the schedulable gain parameter.
func (g *Gain) Gain() *Param {
	return g.gain
}

func (g *Gain) process(in, out []float64, start float64) {
	sr := g.eng.SampleRate()
	end := start + float64(len(out))/sr
	mod := g.eng.paramInput(g.gain)

	if mod == nil {
		if v, ok := g.gain.constantIn(start, end); ok {
			vecmath.ScaleBlock(out, in, v)
			return
		}
	}

	g.gainsBuf.Resize(len(out))
	gains := g.gainsBuf.Samples()

	for i := range gains {
		gains[i] = g.gain.ValueAt(start + float64(i)/sr)
	}
	if mod != nil {
		vecmath.AddBlockInPlace(gains, mod)
	}

	vecmath.MulBlock(out, in, gains)
}
