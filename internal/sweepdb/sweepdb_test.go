package sweepdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sweeps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string, at time.Time) Run {
	return Run{
		ID:              id,
		CreatedAt:       at,
		Spin:            0.8,
		EmitterR:        6,
		EmitterTheta:    1.4,
		ObserverR:       1000,
		ThetaO:          1.2,
		PhiO:            0.4,
		RcMin:           1.2,
		RcMax:           4.8,
		RcSteps:         80,
		LgdMin:          -4,
		LgdMax:          1,
		LgdSteps:        80,
		Cutoff:          10,
		Tol:             1e-9,
		HighPrecision:   false,
		ThetaCandidates: 42,
		PhiCandidates:   17,
		RootCount:       2,
		DurationMS:      1234,
	}
}

func TestOpenAndMigrate(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Greater(t, version, uint(0))

	// Re-opening an already-migrated database is a no-op.
	db2, err := Open(filepath.Join(t.TempDir(), "other.db"))
	require.NoError(t, err)
	db2.Close()
}

func TestInsertAndReadBack(t *testing.T) {
	db := openTestDB(t)

	run := sampleRun(NewRunID(), time.Now().UTC())
	roots := []Root{
		{RunID: run.ID, Idx: 0, Period: 0, Rc: 2.1, LogAbsD: -0.7, Lambda: 1.9, Eta: 3.3, ThetaF: 1.2, PhiF: 0.4},
		{RunID: run.ID, Idx: 1, Period: 1, Rc: 2.4, LogAbsD: -2.1, Lambda: 1.7, Eta: 3.1, ThetaF: 1.2, PhiF: 0.4 + 6.283185},
	}
	require.NoError(t, db.InsertRun(run, roots))

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	if diff := cmp.Diff(run, runs[0], cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Fatalf("run round trip (-want +got):\n%s", diff)
	}

	got, err := db.RunRoots(run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(roots, got); diff != "" {
		t.Fatalf("roots round trip (-want +got):\n%s", diff)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = NewRunID()
		run := sampleRun(ids[i], base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, db.InsertRun(run, nil))
	}

	runs, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, ids[2], runs[0].ID)
	require.Equal(t, ids[1], runs[1].ID)
}

func TestInsertRun_RootsAreAtomicWithRun(t *testing.T) {
	db := openTestDB(t)

	run := sampleRun(NewRunID(), time.Now().UTC())
	require.NoError(t, db.InsertRun(run, nil))

	// A second insert with the same primary key fails and must leave
	// no partial root rows behind.
	err := db.InsertRun(run, []Root{{RunID: run.ID, Idx: 0, Rc: 2}})
	require.Error(t, err)

	roots, err := db.RunRoots(run.ID)
	require.NoError(t, err)
	require.Empty(t, roots)
}

func TestRunRoots_UnknownRun(t *testing.T) {
	db := openTestDB(t)

	roots, err := db.RunRoots("no-such-run")
	require.NoError(t, err)
	require.Empty(t, roots)
}
