package bs1770

import "testing"

func TestHighShelfFilterCoefficientsMatchBS1770Table1(t *testing.T) {
	f := NewHighShelfFilter(48000)

	checkDelta(t, "a1", f.a1, -1.69065929318241, 1e-6)
	checkDelta(t, "a2", f.a2, 0.73248077421585, 1e-6)
	checkDelta(t, "b0", f.b0, 1.53512485958697, 1e-6)
	checkDelta(t, "b1", f.b1, -2.69169618940638, 1e-6)
	checkDelta(t, "b2", f.b2, 1.19839281085285, 1e-6)
}

func TestHighPassFilterCoefficientsMatchBS1770Table1(t *testing.T) {
	f := NewHighPassFilter(48000)

	checkDelta(t, "a1", f.a1, -1.99004745483398, 1e-6)
	checkDelta(t, "a2", f.a2, 0.99007225036621, 1e-6)
	checkDelta(t, "b0", f.b0, 1.0, 1e-6)
	checkDelta(t, "b1", f.b1, -2.0, 1e-6)
	checkDelta(t, "b2", f.b2, 1.0, 1e-6)
}

func checkDelta(t *testing.T, name string, got, want, tolerance float64) {
	t.Helper()

	delta := got - want
	if delta < 0 {
		delta = -delta
	}

	if delta > tolerance {
		t.Errorf("%s = %v, want %v (delta %v > tolerance %v)", name, got, want, delta, tolerance)
	}
}

func TestFilterApplyAdvancesState(t *testing.T) {
	f := NewHighPassFilter(48000)

	// An impulse followed by zeros should produce a nonzero, decaying
	// response, confirming state (x1,x2,y1,y2) carries across calls.
	first := f.Apply(1)
	second := f.Apply(0)
	third := f.Apply(0)

	if first == 0 {
		t.Fatal("expected nonzero response to impulse")
	}

	if second == 0 && third == 0 {
		t.Fatal("expected filter memory to produce a nonzero tail")
	}
}
