// Package history keeps an audit trail of gate runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CZERTAINLY/Gatekeeper/internal/engine"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"github.com/CZERTAINLY/Gatekeeper/internal/risk"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyRecorded = errors.New("already recorded")
)

const violationsSeparator = "\n"

// Run is one recorded gate evaluation.
type Run struct {
	UUID       string
	Time       time.Time
	SASTHigh   int
	SCACount   int
	SASTParsed bool
	SCAParsed  bool
	DASTParsed bool
	Status     model.Status
	Passed     bool
	Violations []string
}

type RunRow struct {
	Run
	ID int
}

func (r RunRow) String() string {
	var sb strings.Builder
	verdict := "PASSED"
	if !r.Passed {
		verdict = "FAILED"
	}
	sb.WriteString(fmt.Sprintf("%s %s %-7s status: %s, sast_high: %d, sca: %d",
		r.Time.UTC().Format(time.RFC3339), r.UUID, verdict, r.Status, r.SASTHigh, r.SCACount))
	var unparsed []string
	for _, p := range []struct {
		ok  bool
		src model.Source
	}{{r.SASTParsed, model.SourceSAST}, {r.SCAParsed, model.SourceSCA}, {r.DASTParsed, model.SourceDAST}} {
		if !p.ok {
			unparsed = append(unparsed, string(p.src))
		}
	}
	if len(unparsed) > 0 {
		sb.WriteString(", unparsed: " + strings.Join(unparsed, ","))
	}
	return sb.String()
}

// NewRun returns the record of an assessment with a fresh UUID.
func NewRun(a engine.Assessment, now time.Time) Run {
	return Run{
		UUID:       uuid.NewString(),
		Time:       now,
		SASTHigh:   a.SAST.Counts.High,
		SCACount:   risk.SCACount(a.SCA),
		SASTParsed: a.SAST.ParseOK,
		SCAParsed:  a.SCA.ParseOK,
		DASTParsed: a.DAST.ParseOK,
		Status:     a.Summary.Status,
		Passed:     a.Verdict.Passed,
		Violations: a.Verdict.Violations,
	}
}

func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			time TEXT NOT NULL,
			sast_high INTEGER NOT NULL,
			sca_count INTEGER NOT NULL,
			sast_parsed BOOLEAN NOT NULL,
			sca_parsed BOOLEAN NOT NULL,
			dast_parsed BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			violations TEXT NOT NULL DEFAULT ''
		)`,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}
	return db, nil
}

// Record persists a run. A run whose UUID is stored already is rejected
// with ErrAlreadyRecorded.
func Record(ctx context.Context, db *sql.DB, run Run) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(ctx context.Context, uuid string) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.", slog.String("uuid", uuid))
		}
	}(ctx, run.UUID)

	var id int
	err = tx.QueryRowContext(ctx, `SELECT id FROM runs WHERE uuid=?`, run.UUID).Scan(&id)
	switch {
	case err == nil:
		return ErrAlreadyRecorded
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("executing sql query failed: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (uuid, time, sast_high, sca_count, sast_parsed, sca_parsed, dast_parsed, status, passed, violations)
		 VALUES (?,?,?,?,?,?,?,?,?,?);`,
		run.UUID,
		run.Time.UTC().Format(time.RFC3339Nano),
		run.SASTHigh,
		run.SCACount,
		run.SASTParsed,
		run.SCAParsed,
		run.DASTParsed,
		string(run.Status),
		run.Passed,
		strings.Join(run.Violations, violationsSeparator),
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

// Get returns the run identified by 'uuid', ErrNotFound when there is none.
func Get(ctx context.Context, db *sql.DB, uuid string) (RunRow, error) {
	row := db.QueryRowContext(ctx, selectRuns+` WHERE uuid=?`, uuid)
	r, err := scan(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return RunRow{}, ErrNotFound
	case err != nil:
		return RunRow{}, fmt.Errorf("executing sql query failed: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A non-positive limit
// returns all of them.
func List(ctx context.Context, db *sql.DB, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, selectRuns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []RunRow
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ret = append(ret, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return ret, nil
}

const selectRuns = `SELECT id, uuid, time, sast_high, sca_count, sast_parsed, sca_parsed, dast_parsed, status, passed, violations FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (RunRow, error) {
	var r RunRow
	var ts, status, violations string
	err := s.Scan(
		&r.ID,
		&r.UUID,
		&ts,
		&r.SASTHigh,
		&r.SCACount,
		&r.SASTParsed,
		&r.SCAParsed,
		&r.DASTParsed,
		&status,
		&r.Passed,
		&violations,
	)
	if err != nil {
		return RunRow{}, err
	}
	r.Time, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return RunRow{}, fmt.Errorf("parsing run time %q: %w", ts, err)
	}
	r.Status = model.Status(status)
	r.Violations = []string{}
	if violations != "" {
		r.Violations = strings.Split(violations, violationsSeparator)
	}
	return r, nil
}
