package lensing

import (
	"math"
	"math/big"
	"testing"
)

func TestBigFloat_ElementaryAgainstMath(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	xs := []float64{0, 1e-8, 0.5, 1, math.Pi / 3, 2, 10, -0.5, -3.25, 100.5, -47.125}
	for _, x := range xs {
		bx := ops.FromFloat(x)

		if got, want := ops.Float(ops.Sin(bx)), math.Sin(x); math.Abs(got-want) > 1e-14 {
			t.Errorf("Sin(%g) = %.17g, want %.17g", x, got, want)
		}
		if got, want := ops.Float(ops.Cos(bx)), math.Cos(x); math.Abs(got-want) > 1e-14 {
			t.Errorf("Cos(%g) = %.17g, want %.17g", x, got, want)
		}
	}

	for _, x := range []float64{0, 1, -1, 0.125, 5.5, -8.25, 30} {
		bx := ops.FromFloat(x)
		got, want := ops.Float(ops.Exp(bx)), math.Exp(x)
		if math.Abs(got-want) > 1e-12*math.Max(want, 1) {
			t.Errorf("Exp(%g) = %.17g, want %.17g", x, got, want)
		}
	}
}

func TestBigFloat_SinArgumentReduction(t *testing.T) {
	ops := NewBigFloat(200)

	// Large arguments: reduction must keep full relative accuracy of
	// the small residual.
	for _, k := range []float64{1, 10, 1000, -1000} {
		x := k*2*math.Pi + 0.3
		got := ops.Float(ops.Sin(ops.FromFloat(x)))
		want := math.Sin(x)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Sin(%g) = %g, want ≈ %g", x, got, want)
		}
	}
}

func TestBigFloat_Floor(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	cases := []struct{ in, want float64 }{
		{2.7, 2}, {2.0, 2}, {0, 0},
		{-0.5, -1}, {-2.0, -2}, {-2.3, -3},
	}
	for _, c := range cases {
		if got := ops.Float(ops.Floor(ops.FromFloat(c.in))); got != c.want {
			t.Errorf("Floor(%g) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestBigFloat_NaNPropagation(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)
	one := ops.FromFloat(1)

	if ops.FromFloat(math.NaN()) != nil {
		t.Fatal("FromFloat(NaN) should map to the nil sentinel")
	}
	if !math.IsNaN(ops.Float(nil)) {
		t.Fatal("Float(nil) should be NaN")
	}

	binary := []func(a, b *big.Float) *big.Float{ops.Add, ops.Sub, ops.Mul, ops.Div}
	for i, f := range binary {
		if f(nil, one) != nil || f(one, nil) != nil {
			t.Errorf("binary op %d does not propagate nil", i)
		}
	}
	unary := []func(x *big.Float) *big.Float{ops.Neg, ops.Abs, ops.Sqrt, ops.Exp, ops.Sin, ops.Cos, ops.Floor}
	for i, f := range unary {
		if f(nil) != nil {
			t.Errorf("unary op %d does not propagate nil", i)
		}
	}

	if ops.Less(nil, one) || ops.Less(one, nil) {
		t.Error("comparisons against nil must be false")
	}
	if ops.Sign(nil) != 0 {
		t.Error("Sign(nil) must be 0")
	}
	if !ops.IsNaN(nil) || ops.IsNaN(one) {
		t.Error("IsNaN misclassifies the sentinel")
	}
}

func TestBigFloat_InvalidOperations(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)
	zero := ops.FromFloat(0)
	negOne := ops.FromFloat(-1)
	inf := new(big.Float).SetPrec(DefaultBigPrec).SetInf(false)
	negInf := new(big.Float).SetPrec(DefaultBigPrec).SetInf(true)

	if ops.Sqrt(negOne) != nil {
		t.Error("sqrt(-1) should be NaN")
	}
	if ops.Div(zero, zero) != nil {
		t.Error("0/0 should be NaN")
	}
	if ops.Add(inf, negInf) != nil {
		t.Error("Inf + (-Inf) should be NaN")
	}
	if ops.Sub(inf, inf) != nil {
		t.Error("Inf - Inf should be NaN")
	}
	if ops.Mul(zero, inf) != nil {
		t.Error("0 · Inf should be NaN")
	}
}

func TestBigFloat_PrecisionClamp(t *testing.T) {
	if got := NewBigFloat(0).prec(); got != DefaultBigPrec {
		t.Errorf("prec 0 → %d, want default %d", got, DefaultBigPrec)
	}
	if got := NewBigFloat(10).prec(); got != 53 {
		t.Errorf("prec 10 → %d, want clamp to 53", got)
	}
	if got := NewBigFloat(100000).prec(); got != MaxBigPrec {
		t.Errorf("prec 100000 → %d, want clamp to %d", got, MaxBigPrec)
	}
}

func TestBigFloat_PiAndEps(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)
	if got := ops.Float(ops.Pi()); got != math.Pi {
		t.Errorf("Pi rounds to %.20g, want %.20g", got, math.Pi)
	}
	if got := ops.Float(ops.TwoPi()); got != 2*math.Pi {
		t.Errorf("TwoPi rounds to %.20g, want %.20g", got, 2*math.Pi)
	}
	if eps := ops.Eps(); eps <= 0 || eps >= 0x1p-52 {
		t.Errorf("Eps() = %g should be positive and below float64 eps", eps)
	}
}

// The fallback exists to resolve what float64 cannot: verify that the
// trait really carries more than 53 bits through arithmetic.
func TestBigFloat_ExtendedPrecision(t *testing.T) {
	ops := NewBigFloat(DefaultBigPrec)

	// (1 + 2^-60) - 1 vanishes in float64 but not at 106 bits.
	tiny := new(big.Float).SetPrec(ops.prec()).SetMantExp(big.NewFloat(1), -60)
	x := ops.Add(ops.FromFloat(1), tiny)
	diff := ops.Sub(x, ops.FromFloat(1))
	if diff.Sign() == 0 {
		t.Fatal("2^-60 lost at 106-bit precision")
	}
	if got := ops.Float(diff); math.Abs(got-0x1p-60) > 1e-25 {
		t.Errorf("recovered %g, want 2^-60", got)
	}
}
