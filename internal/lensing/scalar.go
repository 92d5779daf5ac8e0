package lensing

import "math"

// Scalar is the numeric trait the whole pipeline is generic over. An
// implementation supplies arithmetic, comparison, the few elementary
// functions the sweep needs, and a NaN sentinel, for some concrete
// real type T. The engine never touches T directly; every operation
// goes through the trait, so a single code path serves float64 and
// arbitrary-precision floats alike.
//
// Implementations must propagate NaN: any operation with a NaN
// operand yields NaN, and comparisons involving NaN are false.
type Scalar[T any] interface {
	// FromFloat converts a float64 into T. Float converts back,
	// rounding to nearest when T is wider than float64.
	FromFloat(v float64) T
	Float(x T) float64

	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	Neg(x T) T
	Abs(x T) T

	Sqrt(x T) T
	Exp(x T) T
	Sin(x T) T
	Cos(x T) T
	Floor(x T) T

	// Less reports a < b. It is false whenever either side is NaN.
	Less(a, b T) bool
	// Sign returns -1, 0 or +1. NaN maps to 0; candidate isolation
	// always checks IsNaN before consuming a sign.
	Sign(x T) int

	NaN() T
	IsNaN(x T) bool

	// Eps is the unit roundoff of T as a float64. Used to size
	// finite-difference steps.
	Eps() float64

	Pi() T
	TwoPi() T
}

// Float64 implements Scalar for the native float64 type. It is the
// working precision for every sweep unless the caller routes through
// the high-precision fallback.
type Float64 struct{}

func (Float64) FromFloat(v float64) float64 { return v }
func (Float64) Float(x float64) float64     { return x }

func (Float64) Add(a, b float64) float64 { return a + b }
func (Float64) Sub(a, b float64) float64 { return a - b }
func (Float64) Mul(a, b float64) float64 { return a * b }
func (Float64) Div(a, b float64) float64 { return a / b }
func (Float64) Neg(x float64) float64    { return -x }
func (Float64) Abs(x float64) float64    { return math.Abs(x) }

func (Float64) Sqrt(x float64) float64  { return math.Sqrt(x) }
func (Float64) Exp(x float64) float64   { return math.Exp(x) }
func (Float64) Sin(x float64) float64   { return math.Sin(x) }
func (Float64) Cos(x float64) float64   { return math.Cos(x) }
func (Float64) Floor(x float64) float64 { return math.Floor(x) }

func (Float64) Less(a, b float64) bool { return a < b }

func (Float64) Sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func (Float64) NaN() float64         { return math.NaN() }
func (Float64) IsNaN(x float64) bool { return math.IsNaN(x) }
func (Float64) Eps() float64         { return 0x1p-52 }
func (Float64) Pi() float64          { return math.Pi }
func (Float64) TwoPi() float64       { return 2 * math.Pi }

var _ Scalar[float64] = Float64{}
