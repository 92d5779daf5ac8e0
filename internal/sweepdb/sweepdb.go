// Package sweepdb persists sweep runs and their refined image roots
// in SQLite so batch campaigns can be compared and re-plotted after
// the fact. Schema changes go through embedded golang-migrate
// migrations; see migrate.go.
package sweepdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the sqlite database at path and
// applies pending migrations.
func Open(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sweep db: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY under concurrent inserts.
	sdb.SetMaxOpenConns(1)
	if _, err := sdb.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	db := &DB{DB: sdb}
	if err := db.Migrate(); err != nil {
		sdb.Close()
		return nil, err
	}
	return db, nil
}

// Run is one recorded sweep invocation.
type Run struct {
	ID        string
	CreatedAt time.Time

	Spin         float64
	EmitterR     float64
	EmitterTheta float64
	ObserverR    float64

	ThetaO float64
	PhiO   float64

	RcMin, RcMax   float64
	RcSteps        int
	LgdMin, LgdMax float64
	LgdSteps       int

	Cutoff        int
	Tol           float64
	HighPrecision bool

	ThetaCandidates int
	PhiCandidates   int
	RootCount       int
	DurationMS      int64
}

// Root is one refined image belonging to a run.
type Root struct {
	RunID   string
	Idx     int
	Period  int
	Rc      float64
	LogAbsD float64
	Lambda  float64
	Eta     float64
	ThetaF  float64
	PhiF    float64
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// InsertRun stores a run and its roots in one transaction.
func (db *DB) InsertRun(run Run, roots []Root) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	highPrec := 0
	if run.HighPrecision {
		highPrec = 1
	}
	_, err = tx.Exec(`
		INSERT INTO sweep_runs (
			id, created_at, spin, emitter_r, emitter_theta, observer_r,
			theta_o, phi_o, rc_min, rc_max, rc_steps, lgd_min, lgd_max, lgd_steps,
			cutoff, tol, high_precision, theta_candidates, phi_candidates,
			root_count, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), run.Spin, run.EmitterR, run.EmitterTheta, run.ObserverR,
		run.ThetaO, run.PhiO, run.RcMin, run.RcMax, run.RcSteps, run.LgdMin, run.LgdMax, run.LgdSteps,
		run.Cutoff, run.Tol, highPrec, run.ThetaCandidates, run.PhiCandidates,
		run.RootCount, run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert sweep run %s: %w", run.ID, err)
	}

	for _, r := range roots {
		_, err = tx.Exec(`
			INSERT INTO sweep_roots (
				run_id, idx, period, rc, log_abs_d, lambda, eta, theta_f, phi_f
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Idx, r.Period, r.Rc, r.LogAbsD, r.Lambda, r.Eta, r.ThetaF, r.PhiF,
		)
		if err != nil {
			return fmt.Errorf("insert sweep root %s/%d: %w", run.ID, r.Idx, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, created_at, spin, emitter_r, emitter_theta, observer_r,
		       theta_o, phi_o, rc_min, rc_max, rc_steps, lgd_min, lgd_max, lgd_steps,
		       cutoff, tol, high_precision, theta_candidates, phi_candidates,
		       root_count, duration_ms
		FROM sweep_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweep runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var createdAt string
		var highPrec int
		if err := rows.Scan(
			&r.ID, &createdAt, &r.Spin, &r.EmitterR, &r.EmitterTheta, &r.ObserverR,
			&r.ThetaO, &r.PhiO, &r.RcMin, &r.RcMax, &r.RcSteps, &r.LgdMin, &r.LgdMax, &r.LgdSteps,
			&r.Cutoff, &r.Tol, &highPrec, &r.ThetaCandidates, &r.PhiCandidates,
			&r.RootCount, &r.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan sweep run: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for run %s: %w", r.ID, err)
		}
		r.CreatedAt = t
		r.HighPrecision = highPrec == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRoots returns the refined roots of one run in insertion order.
func (db *DB) RunRoots(runID string) ([]Root, error) {
	rows, err := db.Query(`
		SELECT run_id, idx, period, rc, log_abs_d, lambda, eta, theta_f, phi_f
		FROM sweep_roots WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query roots for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Root
	for rows.Next() {
		var r Root
		if err := rows.Scan(&r.RunID, &r.Idx, &r.Period, &r.Rc, &r.LogAbsD, &r.Lambda, &r.Eta, &r.ThetaF, &r.PhiF); err != nil {
			return nil, fmt.Errorf("scan sweep root: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
