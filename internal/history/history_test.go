package history_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/history"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/stretchr/testify/require"
)

func initDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := history.InitDB(t.Context(), filepath.Join(t.TempDir(), "gatekeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func failing() engine.Assessment {
	return engine.Assess(
		model.Report{Source: model.SourceSAST, Counts: model.SeverityCounts{High: 2}, ParseOK: true, Findings: []model.Finding{}},
		model.Report{Source: model.SourceSCA, Counts: model.SeverityCounts{High: 3}, ParseOK: true, Findings: []model.Finding{}},
		model.Degraded(model.SourceDAST, "opening report: no such file"),
	)
}

func passing() engine.Assessment {
	return engine.Assess(
		model.Report{Source: model.SourceSAST, ParseOK: true, Findings: []model.Finding{}},
		model.Report{Source: model.SourceSCA, ParseOK: true, Findings: []model.Finding{}},
		model.Report{Source: model.SourceDAST, Counts: model.SeverityCounts{Low: 1}, ParseOK: true, Findings: []model.Finding{}},
	)
}

func TestRecordGet(t *testing.T) {
	t.Parallel()
	db := initDB(t)

	at := time.Date(2026, 1, 14, 10, 11, 12, 13, time.UTC)
	run := history.NewRun(failing(), at)
	require.NotEmpty(t, run.UUID)
	require.NoError(t, history.Record(t.Context(), db, run))

	got, err := history.Get(t.Context(), db, run.UUID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ID)
	require.Equal(t, run.UUID, got.UUID)
	require.True(t, at.Equal(got.Time))
	require.Equal(t, 2, got.SASTHigh)
	require.Equal(t, 3, got.SCACount)
	require.True(t, got.SASTParsed)
	require.True(t, got.SCAParsed)
	require.False(t, got.DASTParsed)
	require.Equal(t, model.StatusCritical, got.Status)
	require.False(t, got.Passed)
	require.Equal(t, run.Violations, got.Violations)
	require.Len(t, got.Violations, 2)

	require.Contains(t, got.String(), "FAILED")
	require.Contains(t, got.String(), "unparsed: DAST")

	err = history.Record(t.Context(), db, run)
	require.ErrorIs(t, err, history.ErrAlreadyRecorded)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	db := initDB(t)

	_, err := history.Get(t.Context(), db, "2f0d2cc8-5b1f-4a4b-9d8e-3c8e1f1f5d6a")
	require.ErrorIs(t, err, history.ErrNotFound)
}

func TestList(t *testing.T) {
	t.Parallel()
	db := initDB(t)

	runs, err := history.List(t.Context(), db, 0)
	require.NoError(t, err)
	require.Empty(t, runs)

	start := time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		a := passing()
		if i == 1 {
			a = failing()
		}
		require.NoError(t, history.Record(t.Context(), db, history.NewRun(a, start.Add(time.Duration(i)*time.Minute))))
	}

	runs, err = history.List(t.Context(), db, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// newest first
	require.Equal(t, []int{3, 2, 1}, []int{runs[0].ID, runs[1].ID, runs[2].ID})
	require.True(t, runs[0].Passed)
	require.Equal(t, model.StatusMediumRisk, runs[0].Status)
	require.Empty(t, runs[0].Violations)
	require.False(t, runs[1].Passed)

	runs, err = history.List(t.Context(), db, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestInitDB_Reopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "gatekeeper.db")

	db, err := history.InitDB(t.Context(), path)
	require.NoError(t, err)
	run := history.NewRun(passing(), time.Now())
	require.NoError(t, history.Record(t.Context(), db, run))
	require.NoError(t, db.Close())

	db, err = history.InitDB(t.Context(), path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	got, err := history.Get(t.Context(), db, run.UUID)
	require.NoError(t, err)
	require.True(t, got.Passed)
}

func TestInitDB_Fail(t *testing.T) {
	t.Parallel()

	_, err := history.InitDB(t.Context(), filepath.Join(t.TempDir(), "missing", "gatekeeper.db"))
	require.Error(t, err)
}
