package lensing

import (
	"fmt"
	"runtime"
	"sync"
)

// Engine owns the pooled tracers for one oracle at one numeric
// precision and exposes the public operations: single and batch
// evaluation, root searches, and the grid sweep. Engines are safe for
// concurrent use; every operation claims its own tracers from the
// pool.
type Engine[T any] struct {
	ops    Scalar[T]
	pool   *TracerPool[T]
	solver SolverConfig
}

// NewEngine builds an engine over the given scalar trait and tracer
// factory. The factory must return independent tracers: the engine
// hands one to each parallel worker.
func NewEngine[T any](ops Scalar[T], factory func() Tracer[T]) *Engine[T] {
	return &Engine[T]{
		ops:    ops,
		pool:   NewTracerPool(factory),
		solver: DefaultSolverConfig(),
	}
}

// SetSolverConfig overrides the Broyden iteration bounds used by the
// root searches and sweep refinement.
func (e *Engine[T]) SetSolverConfig(cfg SolverConfig) {
	if cfg.MaxIterations > 0 {
		e.solver = cfg
	}
}

// Ops returns the engine's scalar trait.
func (e *Engine[T]) Ops() Scalar[T] { return e.ops }

// ClearPool discards every cached tracer context.
func (e *Engine[T]) ClearPool() { e.pool.Clear() }

// TraceOne evaluates a single forward trace using a pooled context.
func (e *Engine[T]) TraceOne(p Params[T]) Result[T] {
	t := e.pool.Get()
	defer e.pool.Put(t)
	return t.Trace(p)
}

// TraceBatch evaluates a list of parameter sets in parallel. The
// returned slice matches the input element-for-element: results[i] is
// the trace of params[i] regardless of how the work was scheduled.
func (e *Engine[T]) TraceBatch(params []Params[T]) []Result[T] {
	results := make([]Result[T], len(params))
	parallelFor(len(params), func(begin, end int) {
		t := e.pool.Get()
		defer e.pool.Put(t)
		for i := begin; i < end; i++ {
			results[i] = t.Trace(params[i])
		}
	})
	return results
}

// FindRootResult reports the outcome of a root search. FailReason is
// human-readable and only set when Success is false; Root is only set
// when Success is true.
type FindRootResult[T any] struct {
	Success    bool
	FailReason string
	Root       *Result[T]
}

// FindRoot searches for impact parameters whose trace lands on the
// target angles, with no constraint on the winding period (the sine
// azimuth metric). The search starts from p.Rc, p.LogAbsD.
func (e *Engine[T]) FindRoot(p Params[T], thetaO, phiO, tol T) FindRootResult[T] {
	return e.findRoot(p, 0, false, thetaO, phiO, tol)
}

// FindRootPeriod is the fixed-period variant: the azimuth residual is
// the exact difference φ_f − φ_o − period·2π, pinning one specific
// winding image.
func (e *Engine[T]) FindRootPeriod(p Params[T], period int, thetaO, phiO, tol T) FindRootResult[T] {
	return e.findRoot(p, period, true, thetaO, phiO, tol)
}

func (e *Engine[T]) findRoot(p Params[T], period int, fixedPeriod bool, thetaO, phiO, tol T) FindRootResult[T] {
	ops := e.ops
	phiO = WrapPhi(ops, phiO)

	tracer := e.pool.Get()
	defer e.pool.Put(tracer)

	var rf *residualFunc[T]
	if fixedPeriod {
		rf = newResidualFuncPeriod(ops, tracer, p, period, thetaO, phiO)
	} else {
		rf = newResidualFunc(ops, tracer, p, thetaO, phiO)
	}

	x := broydenSolve(ops, rf.eval, [2]T{p.Rc, p.LogAbsD}, e.solver)

	// The solver does not certify its answer; re-evaluate and judge
	// both the trace status and the residual norm.
	residual := rf.eval(x)

	if rf.last.Status != StatusNormal {
		return FindRootResult[T]{
			FailReason: fmt.Sprintf("ray status: %s", rf.last.Status),
		}
	}
	rnorm := norm2(ops, residual)
	if ops.IsNaN(rnorm) || ops.Less(tol, rnorm) {
		return FindRootResult[T]{
			FailReason: fmt.Sprintf("residual > threshold: %g > %g", ops.Float(rnorm), ops.Float(tol)),
		}
	}

	root := rf.last
	root.Rc = x[0]
	root.LogAbsD = x[1]
	root.DSign = p.DSign
	polishRoot(ops, &root)
	return FindRootResult[T]{Success: true, Root: &root}
}

// polishRoot is the post-refinement polish hook, applied to every
// accepted root. No polish step is currently implemented.
func polishRoot[T any](ops Scalar[T], root *Result[T]) {}

// parallelFor splits [0, n) into contiguous chunks and runs fn on
// each from its own goroutine, blocking until all finish. Chunks are
// disjoint, so bodies that only write indices within their range need
// no locking.
func parallelFor(n int, fn func(begin, end int)) {
	if n <= 0 {
		return
	}
	workers := maxWorkers(n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for begin := 0; begin < n; begin += chunk {
		end := begin + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(b, e int) {
			defer wg.Done()
			fn(b, e)
		}(begin, end)
	}
	wg.Wait()
}

func maxWorkers(n int) int {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
