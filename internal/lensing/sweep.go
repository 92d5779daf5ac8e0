package lensing

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Grid is a dense row-major matrix of T. For a sweep, rows index the
// log|d| samples and columns the rc samples; every grid of one sweep
// shares the same dimensions.
type Grid[T any] struct {
	Rows, Cols int
	Data       []T
}

// NewGrid allocates a rows×cols grid.
func NewGrid[T any](rows, cols int) *Grid[T] {
	return &Grid[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// At returns the element at row i, column j.
func (g *Grid[T]) At(i, j int) T { return g.Data[i*g.Cols+j] }

// Set stores v at row i, column j.
func (g *Grid[T]) Set(i, j int, v T) { g.Data[i*g.Cols+j] = v }

// GridPoint addresses one grid cell.
type GridPoint struct {
	Row, Col int
}

// SweepResult aggregates everything one sweep produced: the sampled
// fields, both candidate families, the matched pairing, and the
// deduplicated refined roots. All slices and grids are owned by the
// sweep invocation that returned them.
type SweepResult[T any] struct {
	Theta, Phi  *Grid[T]
	DeltaTheta  *Grid[T] // θ − θ_o
	DeltaPhi    *Grid[T] // sin((φ − φ_o)/2)
	Lambda, Eta *Grid[T]

	// ThetaRoots and PhiRoots are the (rc, log|d|) coordinates of the
	// sign-change candidates for each residual field.
	ThetaRoots [][2]T
	PhiRoots   [][2]T

	// ThetaRootsClosest lists, in refinement order (ascending pairing
	// distance), the matched φ-candidate coordinate for each ranked
	// θ-candidate.
	ThetaRootsClosest [][2]T

	// Roots holds the successfully refined, deduplicated images.
	Roots []Result[T]
}

// Sweep runs the image-finding pipeline for one target (θ_o, φ_o)
// over the rc × log|d| grid:
//
//  1. sample every grid point in parallel (invalid rays become NaN),
//  2. isolate sign changes of Δθ and Δφ over interior cells, with a
//     λ branch-continuity guard on the Δφ test,
//  3. pair each θ-candidate with its nearest φ-candidate,
//  4. refine the `cutoff` best-paired candidates with the
//     fixed-period Broyden search, seeded at the matched φ-candidate
//     with period = ⌊φ/2π⌋,
//  5. drop refined roots duplicating an earlier one within tol on
//     both coordinates.
//
// Per-candidate refinement failures are logged to the diag stream and
// skipped; an empty candidate set yields a structurally valid empty
// result, not an error.
func (e *Engine[T]) Sweep(p Params[T], thetaO, phiO T, rcList, lgdList []T, cutoff int, tol T) *SweepResult[T] {
	ops := e.ops
	phiO = WrapPhi(ops, phiO)

	rows, cols := len(lgdList), len(rcList)
	res := &SweepResult[T]{
		Theta:      NewGrid[T](rows, cols),
		Phi:        NewGrid[T](rows, cols),
		DeltaTheta: NewGrid[T](rows, cols),
		DeltaPhi:   NewGrid[T](rows, cols),
		Lambda:     NewGrid[T](rows, cols),
		Eta:        NewGrid[T](rows, cols),
	}
	if rows == 0 || cols == 0 {
		return res
	}

	e.sampleGrid(res, p, thetaO, phiO, rcList, lgdList)

	thetaIdx, phiIdx := e.isolateCandidates(res)
	if len(thetaIdx) == 0 && len(phiIdx) == 0 {
		logOpsf("sweep %dx%d: no candidates", rows, cols)
		return res
	}

	res.ThetaRoots = coords(thetaIdx, rcList, lgdList)
	if len(phiIdx) == 0 {
		return res
	}
	res.PhiRoots = coords(phiIdx, rcList, lgdList)

	matched, order := pairCandidates(thetaIdx, phiIdx)

	res.ThetaRootsClosest = make([][2]T, len(order))
	for i, oi := range order {
		c := matched[oi]
		res.ThetaRootsClosest[i] = [2]T{rcList[c.Col], lgdList[c.Row]}
	}

	if cutoff < 0 {
		cutoff = 0
	}
	if cutoff > len(order) {
		cutoff = len(order)
	}
	e.refineCandidates(res, p, thetaO, phiO, rcList, lgdList, matched, order[:cutoff], tol)

	res.Roots = dedupRoots(ops, res.Roots, tol)
	logOpsf("sweep %dx%d: %d θ-candidates, %d φ-candidates, %d images",
		rows, cols, len(thetaIdx), len(phiIdx), len(res.Roots))
	return res
}

// sampleGrid evaluates the oracle at every grid point in parallel.
// Each cell is written exactly once by exactly one worker, so the
// phase needs no locking and is deterministic at any worker count.
func (e *Engine[T]) sampleGrid(res *SweepResult[T], p Params[T], thetaO, phiO T, rcList, lgdList []T) {
	ops := e.ops
	half := ops.FromFloat(0.5)
	cols := len(rcList)

	parallelFor(len(lgdList)*cols, func(begin, end int) {
		tracer := e.pool.Get()
		defer e.pool.Put(tracer)
		local := p
		for k := begin; k < end; k++ {
			i, j := k/cols, k%cols
			local.Rc = rcList[j]
			local.LogAbsD = lgdList[i]
			r := tracer.Trace(local)
			if r.Status == StatusNormal {
				res.Theta.Set(i, j, r.Theta)
				res.Phi.Set(i, j, r.Phi)
				res.DeltaTheta.Set(i, j, ops.Sub(r.Theta, thetaO))
				res.DeltaPhi.Set(i, j, ops.Sin(ops.Mul(ops.Sub(r.Phi, phiO), half)))
				res.Lambda.Set(i, j, r.Lambda)
				res.Eta.Set(i, j, r.Eta)
			} else {
				nan := ops.NaN()
				res.Theta.Set(i, j, nan)
				res.Phi.Set(i, j, nan)
				res.DeltaTheta.Set(i, j, nan)
				res.DeltaPhi.Set(i, j, nan)
				res.Lambda.Set(i, j, nan)
				res.Eta.Set(i, j, nan)
			}
		}
	})
}

// isolateCandidates scans interior cells (row ≥ 1, col ≥ 1) for sign
// changes against the left and upper neighbours. A cell is never a
// candidate if itself or a required neighbour is NaN. The Δφ test
// additionally requires λ to keep a constant sign across the same
// neighbour pairs: a φ sign flip caused by λ crossing a branch
// discontinuity is not an image boundary.
//
// Workers collect into per-chunk buffers merged in row order, keeping
// the candidate lists deterministic.
func (e *Engine[T]) isolateCandidates(res *SweepResult[T]) (thetaIdx, phiIdx []GridPoint) {
	ops := e.ops
	rows, cols := res.Theta.Rows, res.Theta.Cols
	if rows < 2 || cols < 2 {
		return nil, nil
	}

	bounds := chunkRanges(rows - 1)
	thetaChunks := make([][]GridPoint, len(bounds))
	phiChunks := make([][]GridPoint, len(bounds))

	var wg sync.WaitGroup
	for ci, b := range bounds {
		wg.Add(1)
		go func(ci, begin, end int) {
			defer wg.Done()
			var th, ph []GridPoint
			for i := begin + 1; i < end+1; i++ {
				for j := 1; j < cols; j++ {
					dt, dtL, dtU := res.DeltaTheta.At(i, j), res.DeltaTheta.At(i, j-1), res.DeltaTheta.At(i-1, j)
					if !ops.IsNaN(dt) && !ops.IsNaN(dtL) && !ops.IsNaN(dtU) {
						dRow := ops.Sign(dt) * ops.Sign(dtL)
						dCol := ops.Sign(dt) * ops.Sign(dtU)
						if dRow <= 0 || dCol <= 0 {
							th = append(th, GridPoint{Row: i, Col: j})
						}
					}

					dp, dpL, dpU := res.DeltaPhi.At(i, j), res.DeltaPhi.At(i, j-1), res.DeltaPhi.At(i-1, j)
					lm, lmL, lmU := res.Lambda.At(i, j), res.Lambda.At(i, j-1), res.Lambda.At(i-1, j)
					if !ops.IsNaN(dp) && !ops.IsNaN(dpL) && !ops.IsNaN(dpU) &&
						!ops.IsNaN(lm) && !ops.IsNaN(lmL) && !ops.IsNaN(lmU) {
						dRow := ops.Sign(dp) * ops.Sign(dpL)
						dCol := ops.Sign(dp) * ops.Sign(dpU)
						lRow := ops.Sign(lm) * ops.Sign(lmL)
						lCol := ops.Sign(lm) * ops.Sign(lmU)
						if lRow > 0 && lCol > 0 && (dRow <= 0 || dCol <= 0) {
							ph = append(ph, GridPoint{Row: i, Col: j})
						}
					}
				}
			}
			thetaChunks[ci] = th
			phiChunks[ci] = ph
		}(ci, b[0], b[1])
	}
	wg.Wait()

	for ci := range bounds {
		thetaIdx = append(thetaIdx, thetaChunks[ci]...)
		phiIdx = append(phiIdx, phiChunks[ci]...)
	}
	return thetaIdx, phiIdx
}

// pairCandidates matches every θ-candidate with its nearest
// φ-candidate through a bulk-loaded k-d tree over the φ grid
// coordinates, then ranks θ-candidates by pairing distance. True
// images sit where the θ and φ level sets intersect, so small pairing
// distance approximates co-location.
//
// matched[i] is the φ-candidate paired with thetaIdx[i]; order lists
// indices into matched sorted by ascending (squared) grid distance.
func pairCandidates(thetaIdx, phiIdx []GridPoint) (matched []GridPoint, order []int) {
	pts := make(kdtree.Points, len(phiIdx))
	for i, c := range phiIdx {
		pts[i] = kdtree.Point{float64(c.Col), float64(c.Row)}
	}
	tree := kdtree.New(pts, false)

	matched = make([]GridPoint, len(thetaIdx))
	dists := make([]float64, len(thetaIdx))
	for i, c := range thetaIdx {
		q := kdtree.Point{float64(c.Col), float64(c.Row)}
		got, dist := tree.Nearest(q)
		np := got.(kdtree.Point)
		matched[i] = GridPoint{Row: int(np[1]), Col: int(np[0])}
		dists[i] = dist
	}

	order = make([]int, len(thetaIdx))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	return matched, order
}

// refineCandidates runs the fixed-period root search for the selected
// candidates in parallel, seeding each at its matched φ-candidate.
// Successes append to the shared result list under a mutex; failures
// are logged and skipped.
func (e *Engine[T]) refineCandidates(res *SweepResult[T], p Params[T], thetaO, phiO T, rcList, lgdList []T, matched []GridPoint, selected []int, tol T) {
	ops := e.ops
	twoPi := ops.TwoPi()
	var mu sync.Mutex

	parallelFor(len(selected), func(begin, end int) {
		local := p
		for k := begin; k < end; k++ {
			c := matched[selected[k]]
			local.Rc = rcList[c.Col]
			local.LogAbsD = lgdList[c.Row]
			period := int(ops.Float(ops.Floor(ops.Div(res.Phi.At(c.Row, c.Col), twoPi))))

			rr := e.FindRootPeriod(local, period, thetaO, phiO, tol)
			if rr.Success {
				mu.Lock()
				res.Roots = append(res.Roots, *rr.Root)
				mu.Unlock()
			} else {
				logDiagf("find root failed, rc = %v, log|d| = %v, reason: %s",
					ops.Float(local.Rc), ops.Float(local.LogAbsD), rr.FailReason)
			}
		}
	})
}

// dedupRoots removes any root whose both coordinates are within tol
// of an earlier root, keeping the earliest representative of each
// cluster.
func dedupRoots[T any](ops Scalar[T], roots []Result[T], tol T) []Result[T] {
	if len(roots) < 2 {
		return roots
	}
	dup := make([]bool, len(roots))
	for i := 0; i < len(roots); i++ {
		if dup[i] {
			continue
		}
		for j := i + 1; j < len(roots); j++ {
			if dup[j] {
				continue
			}
			drc := ops.Abs(ops.Sub(roots[i].Rc, roots[j].Rc))
			dlgd := ops.Abs(ops.Sub(roots[i].LogAbsD, roots[j].LogAbsD))
			if ops.Less(drc, tol) && ops.Less(dlgd, tol) {
				dup[j] = true
			}
		}
	}
	out := roots[:0]
	for i, r := range roots {
		if !dup[i] {
			out = append(out, r)
		}
	}
	return out
}

// coords converts grid candidates to (rc, log|d|) coordinate pairs.
func coords[T any](idx []GridPoint, rcList, lgdList []T) [][2]T {
	out := make([][2]T, len(idx))
	for i, c := range idx {
		out[i] = [2]T{rcList[c.Col], lgdList[c.Row]}
	}
	return out
}

// chunkRanges splits [0, n) into one contiguous [begin, end) range
// per worker.
func chunkRanges(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	workers := maxWorkers(n)
	chunk := (n + workers - 1) / workers
	var out [][2]int
	for begin := 0; begin < n; begin += chunk {
		end := begin + chunk
		if end > n {
			end = n
		}
		out = append(out, [2]int{begin, end})
	}
	return out
}
