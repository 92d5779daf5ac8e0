package lensing

import (
	"math"
	"math/big"
)

// BigFloat implements Scalar over *big.Float at a fixed mantissa
// precision. It backs the high-precision fallback path.
//
// big.Float has no NaN representation (invalid operations panic with
// ErrNaN), so the nil pointer stands in for NaN: every operation
// returns nil when an operand is nil or the operation is invalid
// (0/0, sqrt of a negative, Inf-Inf), and comparisons against nil are
// false. This mirrors IEEE semantics closely enough for the sweep,
// which only ever asks "is this sample valid" and otherwise keeps NaN
// out of arithmetic.
//
// Sin, Cos and Exp are not provided by math/big and are evaluated by
// argument reduction against stored 200-digit constants followed by
// Taylor summation at guard precision. The stored constants bound the
// usable precision to MaxBigPrec bits; larger requests are clamped.
type BigFloat struct {
	// Prec is the mantissa precision in bits. Zero means
	// DefaultBigPrec.
	Prec uint
}

const (
	// DefaultBigPrec doubles the 53-bit float64 mantissa, the usual
	// remedy for cancellation near degenerate roots.
	DefaultBigPrec = 106

	// MaxBigPrec is bounded by the stored π and ln 2 constants
	// (200 decimal digits ≈ 664 bits, minus guard bits).
	MaxBigPrec = 512

	guardBits = 64
)

const (
	piDigits = "3.1415926535897932384626433832795028841971693993751" +
		"0582097494459230781640628620899862803482534211706798214808651" +
		"3282306647093844609550582231725359408128481117450284102701938" +
		"5211055596446229489549303819644288109756659334461284756482337"

	ln2Digits = "0.6931471805599453094172321214581765680755001343602" +
		"5525412068000949339362196969471560586332699641868754200148102" +
		"0570685733685520235758130557032670751635075961930727570828371" +
		"4351903070386238916734711233501153644979552391204751726815749"
)

// NewBigFloat returns a BigFloat trait at the requested precision,
// clamped to [53, MaxBigPrec]. Zero selects DefaultBigPrec.
func NewBigFloat(prec uint) BigFloat {
	switch {
	case prec == 0:
		prec = DefaultBigPrec
	case prec < 53:
		prec = 53
	case prec > MaxBigPrec:
		prec = MaxBigPrec
	}
	return BigFloat{Prec: prec}
}

func (s BigFloat) prec() uint {
	if s.Prec == 0 {
		return DefaultBigPrec
	}
	if s.Prec > MaxBigPrec {
		return MaxBigPrec
	}
	return s.Prec
}

func (s BigFloat) new() *big.Float {
	return new(big.Float).SetPrec(s.prec())
}

func (s BigFloat) FromFloat(v float64) *big.Float {
	if math.IsNaN(v) {
		return nil
	}
	return s.new().SetFloat64(v)
}

func (s BigFloat) Float(x *big.Float) float64 {
	if x == nil {
		return math.NaN()
	}
	f, _ := x.Float64()
	return f
}

func (s BigFloat) Add(a, b *big.Float) *big.Float {
	if a == nil || b == nil {
		return nil
	}
	if a.IsInf() && b.IsInf() && a.Sign() != b.Sign() {
		return nil
	}
	return s.new().Add(a, b)
}

func (s BigFloat) Sub(a, b *big.Float) *big.Float {
	if a == nil || b == nil {
		return nil
	}
	if a.IsInf() && b.IsInf() && a.Sign() == b.Sign() {
		return nil
	}
	return s.new().Sub(a, b)
}

func (s BigFloat) Mul(a, b *big.Float) *big.Float {
	if a == nil || b == nil {
		return nil
	}
	if (a.IsInf() && b.Sign() == 0) || (b.IsInf() && a.Sign() == 0) {
		return nil
	}
	return s.new().Mul(a, b)
}

func (s BigFloat) Div(a, b *big.Float) *big.Float {
	if a == nil || b == nil {
		return nil
	}
	if (a.Sign() == 0 && b.Sign() == 0) || (a.IsInf() && b.IsInf()) {
		return nil
	}
	return s.new().Quo(a, b)
}

func (s BigFloat) Neg(x *big.Float) *big.Float {
	if x == nil {
		return nil
	}
	return s.new().Neg(x)
}

func (s BigFloat) Abs(x *big.Float) *big.Float {
	if x == nil {
		return nil
	}
	return s.new().Abs(x)
}

func (s BigFloat) Sqrt(x *big.Float) *big.Float {
	if x == nil || x.Sign() < 0 {
		return nil
	}
	return s.new().Sqrt(x)
}

// Sin reduces x modulo 2π into [-π, π] and sums the Taylor series at
// guard precision. With |r| ≤ π the series needs O(prec/log prec)
// terms.
func (s BigFloat) Sin(x *big.Float) *big.Float {
	if x == nil || x.IsInf() {
		return nil
	}
	wp := s.prec() + guardBits

	pi := parseConst(piDigits, wp)
	twoPi := new(big.Float).SetPrec(wp).Add(pi, pi)

	// r = x - 2π·round(x/2π)
	q := new(big.Float).SetPrec(wp).Quo(x, twoPi)
	q.Add(q, big.NewFloat(0.5))
	k := floorInt(q)
	r := new(big.Float).SetPrec(wp).SetInt(k)
	r.Mul(r, twoPi)
	r.Sub(new(big.Float).SetPrec(wp).Set(x), r)

	sum := taylorSin(r, wp)
	return s.new().Set(sum)
}

func (s BigFloat) Cos(x *big.Float) *big.Float {
	if x == nil || x.IsInf() {
		return nil
	}
	wp := s.prec() + guardBits
	pi := parseConst(piDigits, wp)
	halfPi := new(big.Float).SetPrec(wp).Quo(pi, big.NewFloat(2))
	shifted := new(big.Float).SetPrec(wp).Add(x, halfPi)
	return s.Sin(shifted)
}

// Exp reduces x = k·ln2 + r with |r| ≤ ln2/2, sums the series for
// exp(r), and scales by 2^k.
func (s BigFloat) Exp(x *big.Float) *big.Float {
	if x == nil {
		return nil
	}
	if x.IsInf() {
		if x.Sign() > 0 {
			return s.new().SetInf(false)
		}
		return s.new() // exp(-Inf) = 0
	}
	wp := s.prec() + guardBits

	ln2 := parseConst(ln2Digits, wp)
	q := new(big.Float).SetPrec(wp).Quo(x, ln2)
	q.Add(q, big.NewFloat(0.5))
	k := floorInt(q)
	if !k.IsInt64() || k.Int64() > 1<<30 || k.Int64() < -(1<<30) {
		if x.Sign() > 0 {
			return s.new().SetInf(false)
		}
		return s.new()
	}
	r := new(big.Float).SetPrec(wp).SetInt(k)
	r.Mul(r, ln2)
	r.Sub(new(big.Float).SetPrec(wp).Set(x), r)

	// exp(r) = Σ r^n / n!
	one := big.NewFloat(1).SetPrec(wp)
	sum := new(big.Float).SetPrec(wp).Set(one)
	term := new(big.Float).SetPrec(wp).Set(one)
	threshold := new(big.Float).SetMantExp(big.NewFloat(1), -int(wp))
	for n := 1; n < 10000; n++ {
		term.Mul(term, r)
		term.Quo(term, big.NewFloat(float64(n)))
		sum.Add(sum, term)
		if new(big.Float).Abs(term).Cmp(threshold) < 0 {
			break
		}
	}

	res := new(big.Float).SetPrec(wp)
	res.SetMantExp(sum, int(k.Int64()))
	return s.new().Set(res)
}

func (s BigFloat) Floor(x *big.Float) *big.Float {
	if x == nil {
		return nil
	}
	if x.IsInf() {
		return s.new().Set(x)
	}
	return s.new().SetInt(floorInt(x))
}

func (s BigFloat) Less(a, b *big.Float) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Cmp(b) < 0
}

func (s BigFloat) Sign(x *big.Float) int {
	if x == nil {
		return 0
	}
	return x.Sign()
}

func (s BigFloat) NaN() *big.Float { return nil }

func (s BigFloat) IsNaN(x *big.Float) bool { return x == nil }

func (s BigFloat) Eps() float64 {
	return math.Ldexp(1, -int(s.prec())+1)
}

func (s BigFloat) Pi() *big.Float {
	return s.new().Set(parseConst(piDigits, s.prec()+guardBits))
}

func (s BigFloat) TwoPi() *big.Float {
	pi := parseConst(piDigits, s.prec()+guardBits)
	two := new(big.Float).SetPrec(s.prec() + guardBits).Add(pi, pi)
	return s.new().Set(two)
}

var _ Scalar[*big.Float] = BigFloat{}

// parseConst parses a stored decimal constant at the given precision.
// The constants are compile-time literals, so a parse failure is a
// programming error.
func parseConst(digits string, prec uint) *big.Float {
	f, _, err := big.ParseFloat(digits, 10, prec, big.ToNearestEven)
	if err != nil {
		panic("lensing: bad numeric constant: " + err.Error())
	}
	return f
}

// floorInt returns floor(x) as a big.Int. big.Float.Int truncates
// toward zero, so negative non-integers need a correction step.
func floorInt(x *big.Float) *big.Int {
	i, _ := x.Int(nil)
	if x.Sign() < 0 {
		back := new(big.Float).SetPrec(x.Prec()).SetInt(i)
		if back.Cmp(x) != 0 {
			i.Sub(i, big.NewInt(1))
		}
	}
	return i
}

// taylorSin sums sin(r) = Σ (-1)^n r^(2n+1)/(2n+1)! at working
// precision wp, assuming |r| ≤ π.
func taylorSin(r *big.Float, wp uint) *big.Float {
	sum := new(big.Float).SetPrec(wp).Set(r)
	term := new(big.Float).SetPrec(wp).Set(r)
	r2 := new(big.Float).SetPrec(wp).Mul(r, r)
	threshold := new(big.Float).SetMantExp(big.NewFloat(1), -int(wp))
	for n := 1; n < 10000; n++ {
		term.Mul(term, r2)
		term.Quo(term, big.NewFloat(float64(2*n*(2*n+1))))
		if n%2 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
		if new(big.Float).Abs(term).Cmp(threshold) < 0 {
			break
		}
	}
	return sum
}
