// Package database is the persistence collaborator: it stores terminal
// workflow run records handed over by the engine. The core never reads them
// back for its own decisions.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"venue-enrichment/internal/models"
)

type DB struct {
	conn         *sql.DB
	writeTimeout time.Duration
}

// New opens a MySQL connection with pool settings sized for the worker pool.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("mysql", databaseURL)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(10 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn, writeTimeout: 6 * time.Second}
	if err := db.ensureTables(); err != nil {
		return nil, fmt.Errorf("database.New: ensure tables: %w", err)
	}
	return db, nil
}

// Conn exposes the raw connection for auxiliary stores (events).
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) ensureTables() error {
	qry := `CREATE TABLE IF NOT EXISTS enrichment_runs (
		id VARCHAR(64) PRIMARY KEY,
		submission_id VARCHAR(64) NOT NULL,
		venue_name VARCHAR(255) NOT NULL,
		vendor_id VARCHAR(64) NULL,
		outcome VARCHAR(32) NOT NULL,
		score_scalar DOUBLE NULL,
		score_decision VARCHAR(32) NULL,
		sub_scores JSON NULL,
		candidates JSON NULL,
		mapped JSON NULL,
		inference_degraded TINYINT(1) NOT NULL DEFAULT 0,
		duplicate_of VARCHAR(64) NULL,
		duplicate_similarity DOUBLE NULL,
		failure_stage VARCHAR(32) NULL,
		failure_kind VARCHAR(64) NULL,
		started_at DATETIME(6) NOT NULL,
		finished_at DATETIME(6) NULL,
		KEY idx_submission (submission_id),
		KEY idx_outcome (outcome)
	)`
	_, err := db.conn.Exec(qry)
	return err
}

// SaveRun persists one terminal workflow run record.
func (db *DB) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	ctx, cancel := context.WithTimeout(ctx, db.writeTimeout)
	defer cancel()

	var (
		subScores, candidates, mapped []byte
		scalar                        sql.NullFloat64
		decision                      sql.NullString
		err                           error
	)
	if run.Score != nil {
		scalar = sql.NullFloat64{Float64: run.Score.Scalar, Valid: true}
		decision = sql.NullString{String: string(run.Score.Decision), Valid: true}
		if subScores, err = json.Marshal(run.Score.SubScores); err != nil {
			return fmt.Errorf("marshal sub scores: %w", err)
		}
	}
	if len(run.Candidates) > 0 {
		if candidates, err = json.Marshal(run.Candidates); err != nil {
			return fmt.Errorf("marshal candidates: %w", err)
		}
	}
	if run.Mapped != nil {
		if mapped, err = json.Marshal(run.Mapped); err != nil {
			return fmt.Errorf("marshal mapped attributes: %w", err)
		}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO enrichment_runs (
			id, submission_id, venue_name, vendor_id, outcome,
			score_scalar, score_decision, sub_scores, candidates, mapped,
			inference_degraded, duplicate_of, duplicate_similarity,
			failure_stage, failure_kind, started_at, finished_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE outcome = VALUES(outcome), finished_at = VALUES(finished_at)`,
		run.ID, run.Submission.ID, run.Submission.Name, run.Submission.VendorID, string(run.Outcome),
		scalar, decision, nullJSON(subScores), nullJSON(candidates), nullJSON(mapped),
		run.InferenceDegraded, nullStr(run.DuplicateOf), nullFloat(run.DuplicateSimilarity),
		nullStr(string(run.FailureStage)), nullStr(run.FailureKind), run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
