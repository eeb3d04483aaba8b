package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"motorsync/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	machine_id TEXT NOT NULL,
	speed INTEGER NOT NULL,
	temperature INTEGER NOT NULL,
	status TEXT NOT NULL,
	ts_unix INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts_unix DESC, id DESC);
CREATE TABLE IF NOT EXISTS motor_state (
	machine_id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_unix INTEGER NOT NULL
);
`

// SQLiteStore is the durable SampleStore backed by a local SQLite file.
// Core columns are broken out for indexing; the full reading travels in a
// JSON payload column so the many optional sensors don't each need a
// column.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the database at path.
func Open(path string) (*SQLiteStore, error) {
	uri := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already-open database handle. The schema must
// exist; Open is the normal entry point.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts the reading and upserts the machine's state snapshot in
// one transaction.
func (s *SQLiteStore) Append(ctx context.Context, r telemetry.Reading, st telemetry.MotorState) (telemetry.Reading, error) {
	r.ID = 0
	r.Timestamp = r.Timestamp.UTC()

	payload, err := json.Marshal(r)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("marshal reading: %w", err)
	}
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO readings (machine_id, speed, temperature, status, ts_unix, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.MachineID, r.Speed, r.Temperature, string(r.Status), r.Timestamp.Unix(), string(payload))
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: insert reading: %v", ErrUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: last insert id: %v", ErrUnavailable, err)
	}

	now := time.Now().UTC().Unix()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO motor_state (machine_id, state, updated_unix) VALUES (?, ?, ?)
		 ON CONFLICT(machine_id) DO UPDATE SET state=excluded.state, updated_unix=excluded.updated_unix`,
		r.MachineID, string(stateJSON), now); err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: upsert state: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	r.ID = id
	return r, nil
}

// ListRecent returns up to limit readings, most recent first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]telemetry.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM readings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list readings: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := []telemetry.Reading{}
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan reading: %v", ErrUnavailable, err)
		}
		var r telemetry.Reading
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode reading %d: %w", id, err)
		}
		r.ID = id
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate readings: %v", ErrUnavailable, err)
	}
	return out, nil
}

// DeleteAll clears every persisted reading and returns the count removed.
// State snapshots survive so wear accumulators keep their history.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings`)
	if err != nil {
		return 0, fmt.Errorf("%w: delete readings: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", ErrUnavailable, err)
	}
	return n, nil
}

// LoadState returns the persisted state snapshot for a machine.
func (s *SQLiteStore) LoadState(ctx context.Context, machineID string) (telemetry.MotorState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM motor_state WHERE machine_id = ?`, machineID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return telemetry.MotorState{}, ErrNotFound
	}
	if err != nil {
		return telemetry.MotorState{}, fmt.Errorf("%w: load state: %v", ErrUnavailable, err)
	}
	var st telemetry.MotorState
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return telemetry.MotorState{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
