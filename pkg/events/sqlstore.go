package events

import (
	"context"
	"fmt"
	"time"

	"venue-enrichment/pkg/database"
)

// SQLEventStore stores run events in a SQL table with ordered IDs.
// Table schema:
// CREATE TABLE IF NOT EXISTS run_events (
//
//	id BIGINT AUTO_INCREMENT PRIMARY KEY,
//	run_id VARCHAR(64) NOT NULL,
//	type VARCHAR(64) NOT NULL,
//	at DATETIME(6) NOT NULL,
//	data JSON NOT NULL,
//	KEY idx_run (run_id),
//	KEY idx_run_time (run_id, id)
//
// );
// NOTE: JSON may be emulated as LONGTEXT on older MySQL variants.
type SQLEventStore struct {
	db *database.DB
}

func NewSQLEventStore(db *database.DB) (*SQLEventStore, error) {
	s := &SQLEventStore{db: db}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("events: ensure table: %w", err)
	}
	return s, nil
}

func (s *SQLEventStore) ensureTable() error {
	qry := `CREATE TABLE IF NOT EXISTS run_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		type VARCHAR(64) NOT NULL,
		at DATETIME(6) NOT NULL,
		data JSON NOT NULL,
		KEY idx_run (run_id),
		KEY idx_run_time (run_id, id)
	)`
	_, err := s.db.Conn().Exec(qry)
	return err
}

func (s *SQLEventStore) Append(ctx context.Context, e Event) error {
	payload, err := e.MarshalData()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	at := e.Timestamp()
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO run_events (run_id, type, at, data) VALUES (?,?,?,?)`,
		e.RunID(), e.Type(), at, string(payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLEventStore) ListByRun(ctx context.Context, runID string) ([]StoredEvent, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, run_id, type, at, data FROM run_events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var se StoredEvent
		var dataStr string
		if err := rows.Scan(&se.Seq, &se.RunID, &se.Type, &se.Ts, &dataStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		se.Payload = []byte(dataStr)
		out = append(out, se)
	}
	return out, rows.Err()
}

var _ EventStore = (*SQLEventStore)(nil)
