package lensing

import (
	"math"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPromoteDemoteRoundTrip(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	p := Params[float64]{
		Spin:         0.8,
		EmitterR:     6,
		EmitterTheta: 1.4,
		ObserverR:    1000,
		NuR:          SignPositive,
		NuTheta:      SignNegative,
		Rc:           2.25,
		LogAbsD:      -1.5,
		DSign:        SignNegative,
	}
	hp := PromoteParams[*big.Float](ops, p)
	back := Params[float64]{
		Spin:         ops.Float(hp.Spin),
		EmitterR:     ops.Float(hp.EmitterR),
		EmitterTheta: ops.Float(hp.EmitterTheta),
		ObserverR:    ops.Float(hp.ObserverR),
		NuR:          hp.NuR,
		NuTheta:      hp.NuTheta,
		Rc:           ops.Float(hp.Rc),
		LogAbsD:      ops.Float(hp.LogAbsD),
		DSign:        hp.DSign,
	}
	if diff := cmp.Diff(p, back); diff != "" {
		t.Fatalf("params round trip (-want +got):\n%s", diff)
	}

	xs := []float64{0, -1.25, math.Pi, 1e-30}
	hs := PromoteSlice[*big.Float](ops, xs)
	for i, h := range hs {
		if got := ops.Float(h); got != xs[i] {
			t.Errorf("slice element %d: %g → %g", i, xs[i], got)
		}
	}
}

func TestDemoteResult_CarriesNaNAndStatus(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	r := Result[*big.Float]{
		Theta:  nil, // invalid sample
		Phi:    ops.FromFloat(0.4),
		Status: StatusEtaOutOfRange,
		DSign:  SignNegative,
	}
	d := DemoteResult[*big.Float](ops, r)
	if !math.IsNaN(d.Theta) {
		t.Error("nil big field should demote to NaN")
	}
	if d.Phi != 0.4 || d.Status != StatusEtaOutOfRange || d.DSign != SignNegative {
		t.Errorf("demoted result lost fields: %+v", d)
	}
}

func TestSweepHighPrec_MatchesWorkingPrecision(t *testing.T) {
	f64 := Float64{}
	bops := NewBigFloat(DefaultBigPrec)

	loTracer := &affineTracer[float64]{ops: f64, thetaBase: 1, phiBase: 0.4, rcStar: 2, lgdStar: 0.3, lambda: 2}
	hiTracer := &affineTracer[*big.Float]{ops: bops, thetaBase: 1, phiBase: 0.4, rcStar: 2, lgdStar: 0.3, lambda: 2}

	lo := NewEngine[float64](f64, func() Tracer[float64] { return loTracer })
	hi := NewEngine[*big.Float](bops, func() Tracer[*big.Float] { return hiTracer })

	p := Params[float64]{DSign: SignPositive}
	rcList := span(1.0, 3.0, 21)
	lgdList := span(-1.0, 1.0, 21)

	want := lo.Sweep(p, 1.0, 0.4, rcList, lgdList, 5, 1e-8)
	got := SweepHighPrec(hi, p, 1.0, 0.4, rcList, lgdList, 5, 1e-8)

	if len(got.Roots) != len(want.Roots) {
		t.Fatalf("high-precision sweep found %d images, float64 found %d", len(got.Roots), len(want.Roots))
	}
	for i := range got.Roots {
		if math.Abs(got.Roots[i].Rc-want.Roots[i].Rc) > 1e-8 ||
			math.Abs(got.Roots[i].LogAbsD-want.Roots[i].LogAbsD) > 1e-8 {
			t.Errorf("image %d differs across precisions: (%g, %g) vs (%g, %g)",
				i, got.Roots[i].Rc, got.Roots[i].LogAbsD, want.Roots[i].Rc, want.Roots[i].LogAbsD)
		}
	}

	// Same candidate structure: the grids were sampled identically.
	if len(got.ThetaRoots) != len(want.ThetaRoots) || len(got.PhiRoots) != len(want.PhiRoots) {
		t.Errorf("candidate counts differ: θ %d vs %d, φ %d vs %d",
			len(got.ThetaRoots), len(want.ThetaRoots), len(got.PhiRoots), len(want.PhiRoots))
	}
	if got.Theta.Rows != want.Theta.Rows || got.Theta.Cols != want.Theta.Cols {
		t.Errorf("demoted grid dims %dx%d, want %dx%d",
			got.Theta.Rows, got.Theta.Cols, want.Theta.Rows, want.Theta.Cols)
	}
}

func TestFindRootHighPrec(t *testing.T) {
	bops := NewBigFloat(DefaultBigPrec)
	hiTracer := &affineTracer[*big.Float]{ops: bops, thetaBase: 1, phiBase: 0.4, rcStar: 2, lgdStar: 0.3, lambda: 2}
	hi := NewEngine[*big.Float](bops, func() Tracer[*big.Float] { return hiTracer })

	p := Params[float64]{Rc: 1.6, LogAbsD: -0.4, DSign: SignPositive}
	rr := FindRootHighPrec(hi, p, 1.0, 0.4, 1e-10)
	if !rr.Success {
		t.Fatalf("high-precision root search failed: %s", rr.FailReason)
	}
	if math.Abs(rr.Root.Rc-2) > 1e-9 || math.Abs(rr.Root.LogAbsD-0.3) > 1e-9 {
		t.Fatalf("root at (%g, %g), want (2, 0.3)", rr.Root.Rc, rr.Root.LogAbsD)
	}
}
