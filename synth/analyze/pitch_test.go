package analyze

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/graph"
)

func renderOscillator(t *testing.T, wave graph.Waveform, freq, seconds float64) ([]float64, float64) {
	t.Helper()

	const sampleRate = 48000
	e := graph.New(core.WithSampleRate(sampleRate), core.WithBlockSize(512))
	osc := e.NewOscillator(wave, freq)
	if err := e.Connect(osc, e.Destination()); err != nil {
		t.Fatal(err)
	}
	osc.StartAt(0)

	out := make([]float64, int(seconds*sampleRate))
	e.Render(out)
	return out, sampleRate
}

func TestDominantFrequencySine(t *testing.T) {
	tests := []float64{220, 440, 1000}

	for _, freq := range tests {
		samples, sr := renderOscillator(t, graph.Sine, freq, 0.5)

		got, err := DominantFrequency(samples, sr)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-freq) > 1 {
			t.Errorf("DominantFrequency(sine %v Hz) = %v, want within 1 Hz", freq, got)
		}
	}
}

func TestDominantFrequencySawtoothFundamental(t *testing.T) {
	// The sawtooth's strongest partial is its fundamental.
	samples, sr := renderOscillator(t, graph.Sawtooth, 330, 0.5)

	got, err := DominantFrequency(samples, sr)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-330) > 2 {
		t.Errorf("DominantFrequency(saw 330 Hz) = %v, want within 2 Hz", got)
	}
}

func TestDominantFrequencyErrors(t *testing.T) {
	if _, err := DominantFrequency(nil, 48000); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := DominantFrequency([]float64{1, 2}, 48000); err == nil {
		t.Fatal("expected error for too-short input")
	}
	if _, err := DominantFrequency(make([]float64, 64), 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := DominantFrequency(make([]float64, 64), math.NaN()); err == nil {
		t.Fatal("expected error for NaN sample rate")
	}
}

func BenchmarkDominantFrequency(b *testing.B) {
	const sampleRate = 48000
	samples := make([]float64, 24000)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := DominantFrequency(samples, sampleRate); err != nil {
			b.Fatal(err)
		}
	}
}
