package lensing

// residualFunc wraps a tracer into the 2-vector error function the
// root solver drives to zero for a fixed target (θ_o, φ_o):
//
//	r[0] = θ_f − θ_o
//	r[1] = φ_f − φ_o − period·2π   (fixed winding period)
//	r[1] = sin((φ_f − φ_o)/2)      (free period)
//
// The sine form is smooth and antisymmetric around every multiple of
// 2π, so the solver can converge on any image without knowing its
// winding number in advance; the fixed form pins one specific image.
//
// A non-Normal trace yields a NaN residual rather than an error: the
// solver treats that as a failed probe and the caller inspects the
// final trace status itself.
type residualFunc[T any] struct {
	ops    Scalar[T]
	tracer Tracer[T]
	params Params[T] // private copy; Rc/LogAbsD overwritten per call

	thetaO T
	phiO   T

	period      int
	fixedPeriod bool

	half  T
	twoPi T

	// last holds the most recent trace so callers can check status
	// and package the root without re-tracing.
	last Result[T]
}

func newResidualFunc[T any](ops Scalar[T], tracer Tracer[T], params Params[T], thetaO, phiO T) *residualFunc[T] {
	return &residualFunc[T]{
		ops:    ops,
		tracer: tracer,
		params: params,
		thetaO: thetaO,
		phiO:   phiO,
		half:   ops.FromFloat(0.5),
		twoPi:  ops.TwoPi(),
	}
}

func newResidualFuncPeriod[T any](ops Scalar[T], tracer Tracer[T], params Params[T], period int, thetaO, phiO T) *residualFunc[T] {
	f := newResidualFunc(ops, tracer, params, thetaO, phiO)
	f.period = period
	f.fixedPeriod = true
	return f
}

func (f *residualFunc[T]) eval(x [2]T) [2]T {
	ops := f.ops
	f.params.Rc = x[0]
	f.params.LogAbsD = x[1]
	f.last = f.tracer.Trace(f.params)

	if f.last.Status != StatusNormal {
		if f.last.Status != StatusArgumentError {
			logDiagf("trace status: %s (rc=%v log|d|=%v)", f.last.Status, ops.Float(x[0]), ops.Float(x[1]))
		}
		return [2]T{ops.NaN(), ops.NaN()}
	}

	var r [2]T
	r[0] = ops.Sub(f.last.Theta, f.thetaO)
	dphi := ops.Sub(f.last.Phi, f.phiO)
	if f.fixedPeriod {
		r[1] = ops.Sub(dphi, ops.Mul(ops.FromFloat(float64(f.period)), f.twoPi))
	} else {
		r[1] = ops.Sin(ops.Mul(dphi, f.half))
	}
	return r
}

// norm2 returns the Euclidean norm of a residual.
func norm2[T any](ops Scalar[T], r [2]T) T {
	return ops.Sqrt(ops.Add(ops.Mul(r[0], r[0]), ops.Mul(r[1], r[1])))
}
