package lensing

import "math"

// broyden implements a derivative-free Broyden ("good" update) solver
// for 2-dimensional systems F(x) = 0. The initial Jacobian comes from
// forward differences; each accepted step applies the rank-1 update
//
//	J += (ΔF − J·Δx) Δxᵀ / (Δxᵀ Δx)
//
// and a fresh finite-difference Jacobian is taken whenever the Newton
// step degenerates (singular J or a NaN probe that damping cannot
// rescue). The solver stops on residual norm ≤ tolerance or when the
// iteration budget runs out. It does not certify the answer: callers
// re-evaluate F at the returned point and judge the residual and the
// trace status themselves.
//
// Everything runs through the Scalar trait, so the same code serves
// float64 and big-float precision.

// SolverConfig bounds the Broyden iteration.
type SolverConfig struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultSolverConfig matches the tolerances the sweep refinement
// uses when the caller does not override them.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 200,
		Tolerance:     1e-12,
	}
}

const (
	// maxHalvings bounds the step damping loop when a probe lands on
	// an invalid ray (NaN residual).
	maxHalvings = 12
)

// broydenSolve refines x0 toward a zero of f. It returns its best
// point; on an unrecoverable breakdown that is simply the last good
// iterate.
func broydenSolve[T any](ops Scalar[T], f func([2]T) [2]T, x0 [2]T, cfg SolverConfig) [2]T {
	if cfg.MaxIterations <= 0 {
		cfg = DefaultSolverConfig()
	}
	tol := ops.FromFloat(cfg.Tolerance)

	x := x0
	fx := f(x)
	if isNaN2(ops, fx) {
		// Starting point is already invalid; nothing to iterate on.
		return x
	}

	jac, ok := fdJacobian(ops, f, x, fx)
	if !ok {
		return x
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if !ops.Less(tol, norm2(ops, fx)) {
			break // |F| ≤ tol
		}

		dx, ok := solve2(ops, jac, [2]T{ops.Neg(fx[0]), ops.Neg(fx[1])})
		if !ok {
			// Singular or NaN Jacobian: re-linearise once, then bail.
			jac, ok = fdJacobian(ops, f, x, fx)
			if !ok {
				break
			}
			dx, ok = solve2(ops, jac, [2]T{ops.Neg(fx[0]), ops.Neg(fx[1])})
			if !ok {
				break
			}
		}

		// Damp the step while it probes invalid territory.
		xn := [2]T{ops.Add(x[0], dx[0]), ops.Add(x[1], dx[1])}
		fn := f(xn)
		halvings := 0
		for isNaN2(ops, fn) && halvings < maxHalvings {
			dx[0] = ops.Mul(dx[0], ops.FromFloat(0.5))
			dx[1] = ops.Mul(dx[1], ops.FromFloat(0.5))
			xn = [2]T{ops.Add(x[0], dx[0]), ops.Add(x[1], dx[1])}
			fn = f(xn)
			halvings++
		}
		if isNaN2(ops, fn) {
			break
		}

		// Good Broyden rank-1 update.
		df := [2]T{ops.Sub(fn[0], fx[0]), ops.Sub(fn[1], fx[1])}
		jdx := [2]T{
			ops.Add(ops.Mul(jac[0][0], dx[0]), ops.Mul(jac[0][1], dx[1])),
			ops.Add(ops.Mul(jac[1][0], dx[0]), ops.Mul(jac[1][1], dx[1])),
		}
		dd := ops.Add(ops.Mul(dx[0], dx[0]), ops.Mul(dx[1], dx[1]))
		if ops.Sign(dd) != 0 && !ops.IsNaN(dd) {
			for i := 0; i < 2; i++ {
				num := ops.Div(ops.Sub(df[i], jdx[i]), dd)
				jac[i][0] = ops.Add(jac[i][0], ops.Mul(num, dx[0]))
				jac[i][1] = ops.Add(jac[i][1], ops.Mul(num, dx[1]))
			}
		}

		x, fx = xn, fn
	}
	return x
}

// fdJacobian builds a forward-difference Jacobian at x. Step sizes
// scale with sqrt(eps)·max(|x_j|, 1) in the trait's precision.
func fdJacobian[T any](ops Scalar[T], f func([2]T) [2]T, x, fx [2]T) ([2][2]T, bool) {
	var jac [2][2]T
	sqrtEps := ops.FromFloat(math.Sqrt(ops.Eps()))
	one := ops.FromFloat(1)

	for j := 0; j < 2; j++ {
		scale := ops.Abs(x[j])
		if ops.Less(scale, one) {
			scale = one
		}
		h := ops.Mul(sqrtEps, scale)

		xh := x
		xh[j] = ops.Add(x[j], h)
		fh := f(xh)
		if isNaN2(ops, fh) {
			// Try the backward step before giving up.
			xh[j] = ops.Sub(x[j], h)
			fh = f(xh)
			if isNaN2(ops, fh) {
				return jac, false
			}
			h = ops.Neg(h)
		}
		jac[0][j] = ops.Div(ops.Sub(fh[0], fx[0]), h)
		jac[1][j] = ops.Div(ops.Sub(fh[1], fx[1]), h)
	}
	return jac, true
}

// solve2 solves the 2×2 system A·x = b by Cramer's rule.
func solve2[T any](ops Scalar[T], a [2][2]T, b [2]T) ([2]T, bool) {
	det := ops.Sub(ops.Mul(a[0][0], a[1][1]), ops.Mul(a[0][1], a[1][0]))
	if ops.IsNaN(det) || ops.Sign(det) == 0 {
		return [2]T{}, false
	}
	x0 := ops.Div(ops.Sub(ops.Mul(b[0], a[1][1]), ops.Mul(a[0][1], b[1])), det)
	x1 := ops.Div(ops.Sub(ops.Mul(a[0][0], b[1]), ops.Mul(b[0], a[1][0])), det)
	if ops.IsNaN(x0) || ops.IsNaN(x1) {
		return [2]T{}, false
	}
	return [2]T{x0, x1}, true
}

func isNaN2[T any](ops Scalar[T], v [2]T) bool {
	return ops.IsNaN(v[0]) || ops.IsNaN(v[1])
}
