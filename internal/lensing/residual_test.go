package lensing

import (
	"math"
	"testing"
)

func TestResidual_FreePeriodSineMetric(t *testing.T) {
	ops := Float64{}
	tr := &affineTracer[float64]{
		ops:       ops,
		thetaBase: 1.0,
		phiBase:   0.4,
		rcStar:    2.0,
		lgdStar:   0.3,
		lambda:    2,
	}
	rf := newResidualFunc[float64](ops, tr, Params[float64]{DSign: SignPositive}, 1.0, 0.4)

	// At the image the residual vanishes.
	r := rf.eval([2]float64{2.0, 0.3})
	if math.Abs(r[0]) > 1e-15 || math.Abs(r[1]) > 1e-15 {
		t.Fatalf("residual at the image = %v, want ~0", r)
	}

	// The sine metric also vanishes when the azimuth lands a whole
	// number of turns away from the target.
	for _, w := range []int{1, -1, 3} {
		tr.windings = w
		r = rf.eval([2]float64{2.0, 0.3})
		if math.Abs(r[1]) > 1e-12 {
			t.Errorf("windings=%d: sine metric = %g, want ~0", w, r[1])
		}
	}
	tr.windings = 0

	// Antisymmetric around the target azimuth.
	rPlus := rf.eval([2]float64{2.0, 0.3 + 0.2})
	rMinus := rf.eval([2]float64{2.0, 0.3 - 0.2})
	if math.Abs(rPlus[1]+rMinus[1]) > 1e-12 {
		t.Errorf("sine metric not antisymmetric: %g vs %g", rPlus[1], rMinus[1])
	}
}

func TestResidual_FixedPeriod(t *testing.T) {
	ops := Float64{}
	tr := &affineTracer[float64]{
		ops:       ops,
		thetaBase: 1.0,
		phiBase:   0.4,
		rcStar:    2.0,
		lgdStar:   0.3,
		windings:  2,
		lambda:    2,
	}
	params := Params[float64]{DSign: SignPositive}

	// Residual for the matching period vanishes at the image.
	rf := newResidualFuncPeriod[float64](ops, tr, params, 2, 1.0, 0.4)
	r := rf.eval([2]float64{2.0, 0.3})
	if math.Abs(r[0]) > 1e-12 || math.Abs(r[1]) > 1e-12 {
		t.Fatalf("fixed-period residual at the image = %v, want ~0", r)
	}

	// A wrong period leaves a 2π-sized residual, pinning the search to
	// one specific winding image.
	rf = newResidualFuncPeriod[float64](ops, tr, params, 1, 1.0, 0.4)
	r = rf.eval([2]float64{2.0, 0.3})
	if math.Abs(r[1]-2*math.Pi) > 1e-12 {
		t.Errorf("off-by-one period residual = %g, want 2π", r[1])
	}
}

func TestResidual_InvalidTraceIsNaN(t *testing.T) {
	ops := Float64{}
	rf := newResidualFunc[float64](ops, confinedTracer{}, Params[float64]{DSign: SignPositive}, 1.0, 0.4)

	r := rf.eval([2]float64{2.0, 0.3})
	if !math.IsNaN(r[0]) || !math.IsNaN(r[1]) {
		t.Fatalf("invalid trace residual = %v, want NaN pair", r)
	}
	if rf.last.Status != StatusConfined {
		t.Errorf("last status = %s, want CONFINED", rf.last.Status)
	}
}

func TestResidual_DoesNotMutateCallerParams(t *testing.T) {
	ops := Float64{}
	tr := &affineTracer[float64]{ops: ops, thetaBase: 1, phiBase: 0.4, rcStar: 2, lgdStar: 0.3, lambda: 2}

	p := Params[float64]{Rc: 99, LogAbsD: -99, DSign: SignPositive}
	rf := newResidualFunc[float64](ops, tr, p, 1.0, 0.4)
	rf.eval([2]float64{2.0, 0.3})

	if p.Rc != 99 || p.LogAbsD != -99 {
		t.Fatalf("caller params mutated: %+v", p)
	}
}

func TestResidual_PureAndRepeatable(t *testing.T) {
	ops := Float64{}
	tr := &affineTracer[float64]{ops: ops, thetaBase: 1, phiBase: 0.4, rcStar: 2, lgdStar: 0.3, lambda: 2}
	rf := newResidualFunc[float64](ops, tr, Params[float64]{DSign: SignPositive}, 1.0, 0.4)

	x := [2]float64{1.7, -0.2}
	a := rf.eval(x)
	b := rf.eval(x)
	if a != b {
		t.Fatalf("same point, different residuals: %v vs %v", a, b)
	}
}

func TestNorm2(t *testing.T) {
	ops := Float64{}
	if got := norm2[float64](ops, [2]float64{3, 4}); got != 5 {
		t.Errorf("norm2(3,4) = %g, want 5", got)
	}
	if !math.IsNaN(norm2[float64](ops, [2]float64{math.NaN(), 1})) {
		t.Error("norm2 with a NaN component should be NaN")
	}
}
