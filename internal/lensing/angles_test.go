package lensing

import (
	"math"
	"math/big"
	"testing"
)

func TestWrapPhi_Float64(t *testing.T) {
	ops := Float64{}
	twoPi := 2 * math.Pi

	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{1.5, 1.5},
		{twoPi, 0},
		{twoPi + 0.25, 0.25},
		{-0.25, twoPi - 0.25},
		{-5 * twoPi, 0},
		{7*twoPi + 3, 3},
	}
	for _, c := range cases {
		got := WrapPhi(ops, c.in)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("WrapPhi(%g) = %g, want %g", c.in, got, c.want)
		}
		if got < 0 || got >= twoPi {
			t.Errorf("WrapPhi(%g) = %g outside [0, 2π)", c.in, got)
		}
		// Idempotent.
		if again := WrapPhi(ops, got); again != got {
			t.Errorf("WrapPhi not idempotent at %g: %g then %g", c.in, got, again)
		}
	}
}

func TestWrapPhi_NaNPassthrough(t *testing.T) {
	ops := Float64{}
	if !math.IsNaN(WrapPhi(ops, math.NaN())) {
		t.Fatal("WrapPhi(NaN) should be NaN")
	}

	bops := NewBigFloat(DefaultBigPrec)
	if WrapPhi[*big.Float](bops, nil) != nil {
		t.Fatal("big WrapPhi(nil) should stay nil")
	}
}

func TestWrapPhi_BigFloat(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	in := ops.FromFloat(-0.25)
	got := ops.Float(WrapPhi[*big.Float](ops, in))
	want := 2*math.Pi - 0.25
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("big WrapPhi(-0.25) = %g, want %g", got, want)
	}
}
