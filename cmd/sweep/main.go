// Command sweep runs one image-finding sweep over an rc × log|d|
// grid for a single target direction, prints the refined images, and
// optionally persists the run and renders reports.
//
// Example:
//
//	sweep -spin 0.8 -theta 1.2 -phi 0.4 \
//	      -rc-min 1.2 -rc-max 4.8 -rc-steps 80 \
//	      -lgd-min -4 -lgd-max 1 -lgd-steps 80 \
//	      -cutoff 12 -db sweeps.db -report-dir out/
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/lensing/internal/lensing"
	"github.com/banshee-data/lensing/internal/lensing/kerr"
	"github.com/banshee-data/lensing/internal/report"
	"github.com/banshee-data/lensing/internal/sweepdb"
	"github.com/banshee-data/lensing/internal/version"
)

func main() {
	var (
		spin         = flag.Float64("spin", 0.8, "black hole spin a")
		emitterR     = flag.Float64("emitter-r", 6.0, "emission radius r_s")
		emitterTheta = flag.Float64("emitter-theta", 1.4, "emission inclination θ_s (radians)")
		observerR    = flag.Float64("observer-r", 1000.0, "observer radius r_o")
		nuR          = flag.Int("nu-r", 1, "initial radial direction (+1 or -1)")
		nuTheta      = flag.Int("nu-theta", 1, "initial poloidal direction (+1 or -1)")

		thetaO = flag.Float64("theta", 1.2, "target polar angle θ_o (radians)")
		phiO   = flag.Float64("phi", 0.4, "target azimuth φ_o (radians; wrapped into [0,2π))")

		rcMin    = flag.Float64("rc-min", 1.2, "minimum critical-curve radius")
		rcMax    = flag.Float64("rc-max", 4.8, "maximum critical-curve radius")
		rcSteps  = flag.Int("rc-steps", 80, "number of rc samples")
		lgdMin   = flag.Float64("lgd-min", -4.0, "minimum log|d|")
		lgdMax   = flag.Float64("lgd-max", 1.0, "maximum log|d|")
		lgdSteps = flag.Int("lgd-steps", 80, "number of log|d| samples")

		cutoff = flag.Int("cutoff", 10, "maximum candidates to refine")
		tol    = flag.Float64("tol", 1e-9, "convergence and dedup tolerance")

		highPrec = flag.Bool("high-precision", false, "run the sweep at big-float precision")
		precBits = flag.Uint("prec", lensing.DefaultBigPrec, "big-float mantissa bits for -high-precision")

		dbPath    = flag.String("db", "", "sqlite file to record the run in (optional)")
		reportDir = flag.String("report-dir", "", "directory for HTML/PNG reports (optional)")
		verbose   = flag.Bool("v", false, "log per-candidate diagnostics to stderr")
		showVer   = flag.Bool("version", false, "print build version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	if *rcSteps < 2 || *lgdSteps < 2 {
		log.Fatal("rc-steps and lgd-steps must be at least 2")
	}

	writers := lensing.LogWriters{Ops: os.Stderr}
	if *verbose {
		writers.Diag = os.Stderr
	}
	lensing.SetLogWriters(writers)

	params := lensing.Params[float64]{
		Spin:         *spin,
		EmitterR:     *emitterR,
		EmitterTheta: *emitterTheta,
		ObserverR:    *observerR,
		NuR:          raySign(*nuR),
		NuTheta:      raySign(*nuTheta),
		DSign:        lensing.SignPositive,
	}
	rcList := floats.Span(make([]float64, *rcSteps), *rcMin, *rcMax)
	lgdList := floats.Span(make([]float64, *lgdSteps), *lgdMin, *lgdMax)

	start := time.Now()
	var res *lensing.SweepResult[float64]
	if *highPrec {
		ops := lensing.NewBigFloat(*precBits)
		hi := lensing.NewEngine[*big.Float](ops, kerr.Factory[*big.Float](ops))
		res = lensing.SweepHighPrec(hi, params, *thetaO, *phiO, rcList, lgdList, *cutoff, *tol)
	} else {
		eng := lensing.NewEngine[float64](lensing.Float64{}, kerr.Factory[float64](lensing.Float64{}))
		res = eng.Sweep(params, *thetaO, *phiO, rcList, lgdList, *cutoff, *tol)
	}
	elapsed := time.Since(start)

	printResult(res, elapsed)

	if *dbPath != "" {
		if err := persistRun(*dbPath, res, params, *thetaO, *phiO, rcList, lgdList, *cutoff, *tol, *highPrec, elapsed); err != nil {
			log.Fatalf("persist run: %v", err)
		}
	}

	if *reportDir != "" {
		if err := os.MkdirAll(*reportDir, 0o755); err != nil {
			log.Fatalf("create report dir: %v", err)
		}
		if err := report.WriteHTML(filepath.Join(*reportDir, "sweep.html"), res); err != nil {
			log.Fatalf("write html report: %v", err)
		}
		if err := report.WriteDeltaPlots(*reportDir, res, rcList, lgdList); err != nil {
			log.Fatalf("write delta plots: %v", err)
		}
	}
}

func raySign(v int) lensing.RaySign {
	if v < 0 {
		return lensing.SignNegative
	}
	return lensing.SignPositive
}

func windingPeriod(phiF float64) int {
	return int(math.Floor(phiF / (2 * math.Pi)))
}

func printResult(res *lensing.SweepResult[float64], elapsed time.Duration) {
	s := report.Summarize(res)
	fmt.Printf("sweep finished in %s: %.1f%% of grid valid, %d θ-candidates, %d φ-candidates, %d images\n",
		elapsed.Round(time.Millisecond), 100*s.ValidFraction, s.ThetaCandCount, s.PhiCandCount, s.RootCount)

	if len(res.Roots) == 0 {
		fmt.Println("no images found in the swept domain")
		return
	}
	fmt.Printf("%4s %14s %14s %14s %14s %14s %14s %8s\n",
		"#", "rc", "log|d|", "lambda", "eta", "theta_f", "phi_f", "winding")
	for i, r := range res.Roots {
		fmt.Printf("%4d %14.9f %14.9f %14.9f %14.9f %14.9f %14.9f %8d\n",
			i, r.Rc, r.LogAbsD, r.Lambda, r.Eta, r.Theta, r.Phi, windingPeriod(r.Phi))
	}
}

func persistRun(path string, res *lensing.SweepResult[float64], p lensing.Params[float64], thetaO, phiO float64, rcList, lgdList []float64, cutoff int, tol float64, highPrec bool, elapsed time.Duration) error {
	db, err := sweepdb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

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
		HighPrecision:   highPrec,
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
			Period:  windingPeriod(r.Phi),
			Rc:      r.Rc,
			LogAbsD: r.LogAbsD,
			Lambda:  r.Lambda,
			Eta:     r.Eta,
			ThetaF:  r.Theta,
			PhiF:    r.Phi,
		}
	}
	if err := db.InsertRun(run, roots); err != nil {
		return err
	}
	fmt.Printf("recorded run %s in %s\n", run.ID, path)
	return nil
}
