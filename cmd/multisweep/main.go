// Command multisweep runs the image sweep for a list of target
// azimuths (one observation direction per sweep), reusing a single
// engine and tracer pool across the batch. Each run can be recorded
// in the same sqlite file for later comparison.
//
// Example:
//
//	multisweep -theta 1.2 -phis 0.0,0.785,1.571,3.142 -db sweeps.db
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lensing/internal/lensing"
	"github.com/banshee-data/lensing/internal/lensing/kerr"
	"github.com/banshee-data/lensing/internal/sweepdb"
	"github.com/banshee-data/lensing/internal/version"
)

// parseCSVFloatSlice parses a comma-separated list of floats.
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func main() {
	var (
		spin         = flag.Float64("spin", 0.8, "black hole spin a")
		emitterR     = flag.Float64("emitter-r", 6.0, "emission radius r_s")
		emitterTheta = flag.Float64("emitter-theta", 1.4, "emission inclination θ_s (radians)")
		observerR    = flag.Float64("observer-r", 1000.0, "observer radius r_o")

		thetaO  = flag.Float64("theta", 1.2, "target polar angle θ_o (radians)")
		phiList = flag.String("phis", "0,1.5707963,3.1415927,4.7123890", "comma-separated target azimuths (radians)")

		rcMin    = flag.Float64("rc-min", 1.2, "minimum critical-curve radius")
		rcMax    = flag.Float64("rc-max", 4.8, "maximum critical-curve radius")
		rcSteps  = flag.Int("rc-steps", 80, "number of rc samples")
		lgdMin   = flag.Float64("lgd-min", -4.0, "minimum log|d|")
		lgdMax   = flag.Float64("lgd-max", 1.0, "maximum log|d|")
		lgdSteps = flag.Int("lgd-steps", 80, "number of log|d| samples")

		cutoff = flag.Int("cutoff", 10, "maximum candidates to refine per sweep")
		tol    = flag.Float64("tol", 1e-9, "convergence and dedup tolerance")

		dbPath  = flag.String("db", "", "sqlite file to record runs in (optional)")
		verbose = flag.Bool("v", false, "log per-candidate diagnostics to stderr")
		showVer = flag.Bool("version", false, "print build version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	if *rcSteps < 2 || *lgdSteps < 2 {
		log.Fatal("rc-steps and lgd-steps must be at least 2")
	}

	phis, err := parseCSVFloatSlice(*phiList)
	if err != nil {
		log.Fatalf("parse -phis: %v", err)
	}
	if len(phis) == 0 {
		log.Fatal("at least one target azimuth is required")
	}

	writers := lensing.LogWriters{Ops: os.Stderr}
	if *verbose {
		writers.Diag = os.Stderr
	}
	lensing.SetLogWriters(writers)

	var db *sweepdb.DB
	if *dbPath != "" {
		db, err = sweepdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}

	params := lensing.Params[float64]{
		Spin:         *spin,
		EmitterR:     *emitterR,
		EmitterTheta: *emitterTheta,
		ObserverR:    *observerR,
		NuR:          lensing.SignPositive,
		NuTheta:      lensing.SignPositive,
		DSign:        lensing.SignPositive,
	}
	rcList := floats.Span(make([]float64, *rcSteps), *rcMin, *rcMax)
	lgdList := floats.Span(make([]float64, *lgdSteps), *lgdMin, *lgdMax)

	// One engine for the whole batch: pooled tracers carry over from
	// sweep to sweep.
	eng := lensing.NewEngine[float64](lensing.Float64{}, kerr.Factory[float64](lensing.Float64{}))

	total := 0
	for _, phi := range phis {
		start := time.Now()
		res := eng.Sweep(params, *thetaO, phi, rcList, lgdList, *cutoff, *tol)
		elapsed := time.Since(start)
		total += len(res.Roots)

		fmt.Printf("φ_o=%-10.6f θ-cand=%-4d φ-cand=%-4d images=%-3d %s\n",
			phi, len(res.ThetaRoots), len(res.PhiRoots), len(res.Roots), elapsed.Round(time.Millisecond))

		if db != nil {
			if err := record(db, res, params, *thetaO, phi, rcList, lgdList, *cutoff, *tol, elapsed); err != nil {
				log.Fatalf("record run: %v", err)
			}
		}
	}
	fmt.Printf("%d targets swept, %d images total\n", len(phis), total)
}

func record(db *sweepdb.DB, res *lensing.SweepResult[float64], p lensing.Params[float64], thetaO, phiO float64, rcList, lgdList []float64, cutoff int, tol float64, elapsed time.Duration) error {
	run := sweepdb.Run{
		ID:              sweepdb.NewRunID(),
		CreatedAt:       time.Now(),
		Spin:            p.Spin,
		EmitterR:        p.EmitterR,
		EmitterTheta:    p.EmitterTheta,
		ObserverR:       p.ObserverR,
		ThetaO:          thetaO,
		PhiO:            phiO,
		RcMin:           rcList[0],
		RcMax:           rcList[len(rcList)-1],
		RcSteps:         len(rcList),
		LgdMin:          lgdList[0],
		LgdMax:          lgdList[len(lgdList)-1],
		LgdSteps:        len(lgdList),
		Cutoff:          cutoff,
		Tol:             tol,
		ThetaCandidates: len(res.ThetaRoots),
		PhiCandidates:   len(res.PhiRoots),
		RootCount:       len(res.Roots),
		DurationMS:      elapsed.Milliseconds(),
	}
	roots := make([]sweepdb.Root, len(res.Roots))
	for i, r := range res.Roots {
		roots[i] = sweepdb.Root{
			RunID:   run.ID,
			Idx:     i,
			Period:  int(math.Floor(r.Phi / (2 * math.Pi))),
			Rc:      r.Rc,
			LogAbsD: r.LogAbsD,
			Lambda:  r.Lambda,
			Eta:     r.Eta,
			ThetaF:  r.Theta,
			PhiF:    r.Phi,
		}
	}
	return db.InsertRun(run, roots)
}
