// Command voicedemo renders one synthesizer voice offline and prints a
// summary of the result, optionally playing it through the default
// audio device.
//
// Usage:
//
//	voicedemo [flags]
//
// Defaults can be supplied via an optional .env file with the keys
// VOICEDEMO_FREQ, VOICEDEMO_AMP, VOICEDEMO_SUSTAIN and VOICEDEMO_RATE;
// flags take precedence.
//
// Examples:
//
//	voicedemo -freq 440 -amp 0.8
//	voicedemo -freq 256 -sustain 2 -play
package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/joho/godotenv"

	"github.com/cwbudde/algo-synth/synth/analyze"
	"github.com/cwbudde/algo-synth/synth/core"
	"github.com/cwbudde/algo-synth/synth/graph"
	"github.com/cwbudde/algo-synth/synth/voice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "voicedemo:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	freq := flag.Float64("freq", envFloat("VOICEDEMO_FREQ", 440), "base frequency in Hz")
	amp := flag.Float64("amp", envFloat("VOICEDEMO_AMP", 0.8), "peak amplitude in [0,1]")
	sustain := flag.Float64("sustain", envFloat("VOICEDEMO_SUSTAIN", 1.0), "seconds to hold the note before stopping")
	rate := flag.Float64("rate", envFloat("VOICEDEMO_RATE", 48000), "sample rate in Hz")
	play := flag.Bool("play", false, "play the rendered note through the audio device")
	flag.Parse()

	samples, err := renderNote(*freq, *amp, *sustain, *rate)
	if err != nil {
		return err
	}

	printSummary(samples, *freq, *rate)

	if *play {
		return playback(samples, *rate)
	}
	return nil
}

// renderNote drives one voice through its full lifecycle and returns
// the rendered mono signal.
func renderNote(freq, amp, sustain, rate float64) ([]float64, error) {
	e := graph.New(core.WithSampleRate(rate), core.WithBlockSize(256))

	v, err := voice.New(e, freq, amp, e.Destination())
	if err != nil {
		return nil, err
	}
	if err := v.Start(); err != nil {
		return nil, err
	}

	var samples []float64
	for e.CurrentTime() < sustain {
		samples = append(samples, e.RenderBlock()...)
	}

	if err := v.Stop(); err != nil {
		return nil, err
	}

	// Render until the voice has torn itself down, with a margin in
	// case the stop lands mid-block.
	deadline := e.CurrentTime() + 1
	for v.State() != voice.Disposed && e.CurrentTime() < deadline {
		samples = append(samples, e.RenderBlock()...)
	}

	return samples, nil
}

func printSummary(samples []float64, freq, rate float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "base frequency\t%.2f Hz\n", freq)
	fmt.Fprintf(w, "duration\t%.3f s\n", float64(len(samples))/rate)
	fmt.Fprintf(w, "samples\t%d\n", len(samples))
	fmt.Fprintf(w, "peak\t%.4f\n", peak)

	if dominant, err := analyze.DominantFrequency(samples, rate); err == nil {
		fmt.Fprintf(w, "dominant\t%.2f Hz\n", dominant)
	}

	w.Flush()
}

func playback(samples []float64, rate float64) error {
	op := &oto.NewContextOptions{
		SampleRate:   int(rate),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	pcm := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(pcm[4*i:], math.Float32bits(float32(s)))
	}

	p := ctx.NewPlayer(bytes.NewReader(pcm))
	p.Play()
	for p.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	return p.Close()
}

func envFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
