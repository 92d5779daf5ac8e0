package lensing

import "math/big"

// High-precision fallback. The grid sweep occasionally lands in
// ill-conditioned territory (near-degenerate roots, cancellation in
// the oracle's internals) where float64 cannot separate candidates.
// The fallback is explicit: the caller promotes every input to
// big.Float, runs the identical generic pipeline on a big-float
// engine, and casts every output field back down. Nothing in the
// algorithm changes, only the scalar trait underneath it.

// PromoteParams converts float64 trace parameters into the target
// precision.
func PromoteParams[T any](ops Scalar[T], p Params[float64]) Params[T] {
	return Params[T]{
		Spin:         ops.FromFloat(p.Spin),
		EmitterR:     ops.FromFloat(p.EmitterR),
		EmitterTheta: ops.FromFloat(p.EmitterTheta),
		ObserverR:    ops.FromFloat(p.ObserverR),
		NuR:          p.NuR,
		NuTheta:      p.NuTheta,
		Rc:           ops.FromFloat(p.Rc),
		LogAbsD:      ops.FromFloat(p.LogAbsD),
		DSign:        p.DSign,
	}
}

// PromoteSlice converts a float64 list into the target precision.
func PromoteSlice[T any](ops Scalar[T], xs []float64) []T {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = ops.FromFloat(x)
	}
	return out
}

// DemoteResult casts one trace result down to float64.
func DemoteResult[T any](ops Scalar[T], r Result[T]) Result[float64] {
	return Result[float64]{
		Theta:   ops.Float(r.Theta),
		Phi:     ops.Float(r.Phi),
		Lambda:  ops.Float(r.Lambda),
		Eta:     ops.Float(r.Eta),
		Rc:      ops.Float(r.Rc),
		LogAbsD: ops.Float(r.LogAbsD),
		DSign:   r.DSign,
		Status:  r.Status,
	}
}

// DemoteSweepResult casts every field of a sweep result down to
// float64.
func DemoteSweepResult[T any](ops Scalar[T], r *SweepResult[T]) *SweepResult[float64] {
	out := &SweepResult[float64]{
		Theta:      demoteGrid(ops, r.Theta),
		Phi:        demoteGrid(ops, r.Phi),
		DeltaTheta: demoteGrid(ops, r.DeltaTheta),
		DeltaPhi:   demoteGrid(ops, r.DeltaPhi),
		Lambda:     demoteGrid(ops, r.Lambda),
		Eta:        demoteGrid(ops, r.Eta),

		ThetaRoots:        demotePairs(ops, r.ThetaRoots),
		PhiRoots:          demotePairs(ops, r.PhiRoots),
		ThetaRootsClosest: demotePairs(ops, r.ThetaRootsClosest),
	}
	out.Roots = make([]Result[float64], len(r.Roots))
	for i, root := range r.Roots {
		out.Roots[i] = DemoteResult(ops, root)
	}
	return out
}

func demoteGrid[T any](ops Scalar[T], g *Grid[T]) *Grid[float64] {
	out := NewGrid[float64](g.Rows, g.Cols)
	for i, v := range g.Data {
		out.Data[i] = ops.Float(v)
	}
	return out
}

func demotePairs[T any](ops Scalar[T], ps [][2]T) [][2]float64 {
	out := make([][2]float64, len(ps))
	for i, p := range ps {
		out[i] = [2]float64{ops.Float(p[0]), ops.Float(p[1])}
	}
	return out
}

// SweepHighPrec promotes every numeric input, runs the sweep on the
// given big-float engine unmodified, and casts the whole result back
// to working precision.
func SweepHighPrec(hi *Engine[*big.Float], p Params[float64], thetaO, phiO float64, rcList, lgdList []float64, cutoff int, tol float64) *SweepResult[float64] {
	ops := hi.ops
	res := hi.Sweep(
		PromoteParams(ops, p),
		ops.FromFloat(thetaO),
		ops.FromFloat(phiO),
		PromoteSlice(ops, rcList),
		PromoteSlice(ops, lgdList),
		cutoff,
		ops.FromFloat(tol),
	)
	return DemoteSweepResult(ops, res)
}

// FindRootHighPrec runs the free-period root search at elevated
// precision and casts the outcome down.
func FindRootHighPrec(hi *Engine[*big.Float], p Params[float64], thetaO, phiO, tol float64) FindRootResult[float64] {
	ops := hi.ops
	rr := hi.FindRoot(PromoteParams(ops, p), ops.FromFloat(thetaO), ops.FromFloat(phiO), ops.FromFloat(tol))
	out := FindRootResult[float64]{Success: rr.Success, FailReason: rr.FailReason}
	if rr.Root != nil {
		root := DemoteResult(ops, *rr.Root)
		out.Root = &root
	}
	return out
}
