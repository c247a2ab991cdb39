// Package analyze provides offline spectral helpers for verifying
// rendered audio, such as locating the dominant frequency of a buffer.
package analyze

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/synth/buffer"
)

// scratchPool reuses the real/imag unpacking buffers across calls.
var scratchPool = buffer.NewPool()

// DominantFrequency estimates the strongest spectral component of
// samples in Hz. The input is Hann-windowed, zero-padded to a power of
// two and transformed; the peak bin is refined by parabolic
// interpolation of its neighbors.
func DominantFrequency(samples []float64, sampleRate float64) (float64, error) {
	if len(samples) < 4 {
		return 0, fmt.Errorf("analyze: need at least 4 samples: %d", len(samples))
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("analyze: sample rate must be > 0 and finite: %f", sampleRate)
	}

	fftSize := nextPowerOf2(len(samples))

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return 0, fmt.Errorf("analyze: fft plan: %w", err)
	}

	in := make([]complex128, fftSize)
	n := len(samples)
	for i, v := range samples {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		in[i] = complex(v*w, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return 0, fmt.Errorf("analyze: forward fft: %w", err)
	}

	half := fftSize / 2

	reBuf := scratchPool.Get(half)
	imBuf := scratchPool.Get(half)
	magBuf := scratchPool.Get(half)
	defer func() {
		scratchPool.Put(reBuf)
		scratchPool.Put(imBuf)
		scratchPool.Put(magBuf)
	}()

	re := reBuf.Samples()
	im := imBuf.Samples()
	mag := magBuf.Samples()

	for i := 0; i < half; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}
	vecmath.Magnitude(mag, re, im)

	// Skip DC; the signal path is zero-mean but windowing can leak a
	// small DC component.
	peak := 1
	for i := 2; i < half; i++ {
		if mag[i] > mag[peak] {
			peak = i
		}
	}

	bin := float64(peak)
	if peak > 1 && peak < half-1 {
		bin += parabolicOffset(mag[peak-1], mag[peak], mag[peak+1])
	}

	return bin * sampleRate / float64(fftSize), nil
}

// parabolicOffset refines a peak position from its two neighbors.
// Returns a fractional bin offset in (-0.5, 0.5).
func parabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if denom == 0 {
		return 0
	}

	d := 0.5 * (left - right) / denom
	if d < -0.5 || d > 0.5 {
		return 0
	}
	return d
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
