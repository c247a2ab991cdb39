package graph

import (
	"testing"

	"github.com/cwbudde/algo-synth/synth/core"
)

func TestGainStaticScaling(t *testing.T) {
	e := New(core.WithSampleRate(48000), core.WithBlockSize(32))
	osc := e.NewOscillator(Square, 100)
	g := e.NewGain(0.5)

	if err := e.Connect(osc, g); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(g, e.Destination()); err != nil {
		t.Fatal(err)
	}
	osc.StartAt(0)

	out := e.RenderBlock()
	for i, v := range out {
		if !almostEqual(v, 0.5, 1e-12) {
			t.Fatalf("sample %d = %v, want 0.5", i, v)
		}
	}
}

func TestGainScheduledRamp(t *testing.T) {
	e := New(core.WithSampleRate(48000), core.WithBlockSize(48))
	osc := e.NewOscillator(Square, 1) // constant +1 for the whole block
	g := e.NewGain(1)

	if err := e.Connect(osc, g); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(g, e.Destination()); err != nil {
		t.Fatal(err)
	}
	osc.StartAt(0)

	rampEnd := 48.0 / 48000
	g.Gain().SetValueAtTime(0, 0)
	g.Gain().LinearRampToValueAtTime(1, rampEnd)

	out := e.RenderBlock()
	for i, v := range out {
		want := float64(i) / 48
		if !almostEqual(v, want, 1e-12) {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestGainAudioRateModulation(t *testing.T) {
	// Square modulation into the gain param: computed gain alternates
	// between 1+1=2 and 1-1=0 as the modulator flips.
	e := New(core.WithSampleRate(48000), core.WithBlockSize(96))
	carrier := e.NewOscillator(Square, 100) // +1 for all 96 samples
	mod := e.NewOscillator(Square, 500)     // flips every 48 samples
	g := e.NewGain(1)

	if err := e.Connect(carrier, g); err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectParam(mod, g.Gain()); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(g, e.Destination()); err != nil {
		t.Fatal(err)
	}
	carrier.StartAt(0)
	mod.StartAt(0)

	out := e.RenderBlock()
	for i := 0; i < 48; i++ {
		if !almostEqual(out[i], 2, 1e-12) {
			t.Fatalf("sample %d = %v, want 2 (modulator high)", i, out[i])
		}
	}
	for i := 48; i < 96; i++ {
		if !almostEqual(out[i], 0, 1e-12) {
			t.Fatalf("sample %d = %v, want 0 (modulator low)", i, out[i])
		}
	}
}

func TestGainModulatorNeverFeedsSignalPath(t *testing.T) {
	// With a silent carrier the modulated gain stage must stay silent:
	// the modulator drives the gain parameter, not the signal input.
	e := New(core.WithBlockSize(64))
	mod := e.NewOscillator(Sine, 100)
	g := e.NewGain(1)

	if err := e.ConnectParam(mod, g.Gain()); err != nil {
		t.Fatal(err)
	}
	if err := e.Connect(g, e.Destination()); err != nil {
		t.Fatal(err)
	}
	mod.StartAt(0)

	out := e.RenderBlock()
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0 (no signal input)", i, v)
		}
	}
}
