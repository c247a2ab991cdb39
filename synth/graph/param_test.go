package graph

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// testParam returns a Param owned by a throwaway gain node.
func testParam(t *testing.T, def float64) *Param {
	t.Helper()
	e := New()
	return e.NewGain(def).Gain()
}

func TestParamDefaultValue(t *testing.T) {
	p := testParam(t, 0.75)
	if p.DefaultValue() != 0.75 {
		t.Fatalf("DefaultValue() = %v, want 0.75", p.DefaultValue())
	}
	if v := p.ValueAt(123.4); v != 0.75 {
		t.Fatalf("ValueAt before any event = %v, want default", v)
	}
}

func TestParamSetValueAtTime(t *testing.T) {
	p := testParam(t, 1)
	p.SetValueAtTime(0.25, 1.0)

	if v := p.ValueAt(0.5); v != 1 {
		t.Fatalf("before event: %v, want 1", v)
	}
	if v := p.ValueAt(1.0); v != 0.25 {
		t.Fatalf("at event: %v, want 0.25", v)
	}
	if v := p.ValueAt(99); v != 0.25 {
		t.Fatalf("after event: %v, want 0.25", v)
	}
}

func TestParamLinearRamp(t *testing.T) {
	p := testParam(t, 1)
	p.SetValueAtTime(0, 1.0)
	p.LinearRampToValueAtTime(0.8, 1.02)

	tests := []struct {
		at   float64
		want float64
	}{
		{at: 1.0, want: 0},
		{at: 1.005, want: 0.2},
		{at: 1.01, want: 0.4},
		{at: 1.02, want: 0.8},
		{at: 2.0, want: 0.8},
	}
	for _, tt := range tests {
		if v := p.ValueAt(tt.at); !almostEqual(v, tt.want, 1e-12) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.at, v, tt.want)
		}
	}
}

func TestParamChainedRamps(t *testing.T) {
	// Attack then decay, as a voice envelope schedules it.
	p := testParam(t, 1)
	p.SetValueAtTime(0, 0)
	p.LinearRampToValueAtTime(0.8, 0.02)
	p.LinearRampToValueAtTime(0.4, 0.03)

	if v := p.ValueAt(0.01); !almostEqual(v, 0.4, 1e-12) {
		t.Fatalf("mid-attack value = %v, want 0.4", v)
	}
	if v := p.ValueAt(0.02); !almostEqual(v, 0.8, 1e-12) {
		t.Fatalf("attack peak = %v, want 0.8", v)
	}
	if v := p.ValueAt(0.025); !almostEqual(v, 0.6, 1e-12) {
		t.Fatalf("mid-decay value = %v, want 0.6", v)
	}
	if v := p.ValueAt(0.5); !almostEqual(v, 0.4, 1e-12) {
		t.Fatalf("sustain value = %v, want 0.4", v)
	}
}

func TestParamCancelScheduledValues(t *testing.T) {
	p := testParam(t, 1)
	p.SetValueAtTime(0.5, 1.0)
	p.SetValueAtTime(0.9, 2.0)
	p.LinearRampToValueAtTime(0, 3.0)

	p.CancelScheduledValues(2.0)

	if v := p.ValueAt(1.5); v != 0.5 {
		t.Fatalf("kept event value = %v, want 0.5", v)
	}
	if v := p.ValueAt(5.0); v != 0.5 {
		t.Fatalf("value after cancel = %v, want 0.5 (later events removed)", v)
	}
}

func TestParamCancelThenPin(t *testing.T) {
	// The stop() sequence: cancel pending ramps, pin the current value,
	// then ramp to zero.
	p := testParam(t, 1)
	p.SetValueAtTime(0, 0)
	p.LinearRampToValueAtTime(0.8, 0.02)
	p.LinearRampToValueAtTime(0.4, 0.03)

	const t1 = 0.01
	pinned := p.ValueAt(t1)
	p.CancelScheduledValues(t1)
	p.SetValueAtTime(pinned, t1)
	p.LinearRampToValueAtTime(0, t1+0.5)

	if !almostEqual(pinned, 0.4, 1e-12) {
		t.Fatalf("pinned value = %v, want 0.4", pinned)
	}
	if v := p.ValueAt(t1 + 0.25); !almostEqual(v, 0.2, 1e-12) {
		t.Fatalf("mid-release value = %v, want 0.2", v)
	}
	if v := p.ValueAt(t1 + 0.5); v != 0 {
		t.Fatalf("release end value = %v, want 0", v)
	}
}

func TestParamLeadingRampIsStep(t *testing.T) {
	p := testParam(t, 0.3)
	p.LinearRampToValueAtTime(1, 2.0)

	if v := p.ValueAt(1.0); v != 0.3 {
		t.Fatalf("before leading ramp: %v, want default 0.3", v)
	}
	if v := p.ValueAt(2.0); v != 1 {
		t.Fatalf("at leading ramp end: %v, want 1", v)
	}
}

func TestParamConstantIn(t *testing.T) {
	p := testParam(t, 1)

	if v, ok := p.constantIn(0, 1); !ok || v != 1 {
		t.Fatalf("empty schedule: (%v, %v), want (1, true)", v, ok)
	}

	p.SetValueAtTime(0.5, 1.0)
	p.LinearRampToValueAtTime(0, 2.0)

	if _, ok := p.constantIn(0.9, 1.1); ok {
		t.Fatal("interval containing an event reported constant")
	}
	if _, ok := p.constantIn(1.2, 1.3); ok {
		t.Fatal("interval inside a ramp reported constant")
	}
	if v, ok := p.constantIn(2.5, 2.6); !ok || v != 0 {
		t.Fatalf("interval after last event: (%v, %v), want (0, true)", v, ok)
	}
	if v, ok := p.constantIn(0.1, 0.2); !ok || v != 1 {
		t.Fatalf("interval before first event: (%v, %v), want (1, true)", v, ok)
	}
}
