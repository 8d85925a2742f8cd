package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/puppilot/internal/model"

	_ "modernc.org/sqlite"
)

const createSailsTable = `
CREATE TABLE IF NOT EXISTS sails (
    id           TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    total        INTEGER NOT NULL,
    done         INTEGER NOT NULL,
    max_parallel INTEGER NOT NULL,
    created_at   DATETIME NOT NULL,
    finished_at  DATETIME
)`

const createSailJobsTable = `
CREATE TABLE IF NOT EXISTS sail_jobs (
    sail_id     TEXT NOT NULL REFERENCES sails(id),
    idx         INTEGER NOT NULL,
    routine_id  TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    PRIMARY KEY (sail_id, idx)
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: every ":memory:" connection is its own database, and
	// sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for name, ddl := range map[string]string{
		"kv":        createKVTable,
		"sails":     createSailsTable,
		"sail_jobs": createSailJobsTable,
	} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create %s table: %w", name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// KV returns the key/value store with the given name. Stores are created
// lazily by their first write.
func (s *SQLiteStore) KV(name string) *KV {
	return &KV{db: s.db, name: name}
}

// CreateSail inserts a new sail record. Jobs on the record are ignored; they
// are written by FinishSail.
func (s *SQLiteStore) CreateSail(ctx context.Context, r *model.SailRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sails (id, status, total, done, max_parallel, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Total, r.Done, r.MaxParallel, r.CreatedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sail: %w", err)
	}
	return nil
}

// MarkSailProcessing moves a sail from created to processing.
func (s *SQLiteStore) MarkSailProcessing(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := transition(ctx, tx, id, model.SailProcessing); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE sails SET status = ? WHERE id = ?", model.SailProcessing, id); err != nil {
		return fmt.Errorf("update sail status: %w", err)
	}
	return tx.Commit()
}

// FinishSail marks a sail completed and records the outcome of every job.
func (s *SQLiteStore) FinishSail(ctx context.Context, id string, done int, jobs []model.JobRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := transition(ctx, tx, id, model.SailCompleted); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE sails SET status = ?, done = ?, finished_at = ? WHERE id = ?",
		model.SailCompleted, done, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("update sail: %w", err)
	}
	for _, j := range jobs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sail_jobs (sail_id, idx, routine_id, status, message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, j.Index, j.RoutineID, j.Status, j.Message, j.DurationMS,
		); err != nil {
			return fmt.Errorf("insert job %d: %w", j.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sail: %w", err)
	}
	return nil
}

// transition checks that the sail exists and may move to the given status.
func transition(ctx context.Context, tx *sql.Tx, id string, to model.SailStatus) error {
	var from model.SailStatus
	err := tx.QueryRowContext(ctx, "SELECT status FROM sails WHERE id = ?", id).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read sail status: %w", err)
	}
	if !model.ValidSailTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// GetSail retrieves a sail and its job outcomes by ID.
func (s *SQLiteStore) GetSail(ctx context.Context, id string) (*model.SailRecord, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	r := &model.SailRecord{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, status, total, done, max_parallel, created_at, finished_at
		FROM sails WHERE id = ?`, id,
	).Scan(&r.ID, &r.Status, &r.Total, &r.Done, &r.MaxParallel, &r.CreatedAt, &r.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sail: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT idx, routine_id, status, message, duration_ms
		FROM sail_jobs WHERE sail_id = ? ORDER BY idx`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get sail jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var j model.JobRecord
		if err := rows.Scan(&j.Index, &j.RoutineID, &j.Status, &j.Message, &j.DurationMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		r.Jobs = append(r.Jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return r, nil
}

// ListSails returns a page of sails, newest first, along with the total
// count of all sails. Job outcomes are not loaded.
func (s *SQLiteStore) ListSails(ctx context.Context, limit, offset int) ([]*model.SailRecord, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sails").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sails: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, total, done, max_parallel, created_at, finished_at
		FROM sails ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list sails: %w", err)
	}
	defer rows.Close()

	var sails []*model.SailRecord
	for rows.Next() {
		r := &model.SailRecord{}
		if err := rows.Scan(&r.ID, &r.Status, &r.Total, &r.Done, &r.MaxParallel, &r.CreatedAt, &r.FinishedAt); err != nil {
			return nil, 0, fmt.Errorf("scan sail: %w", err)
		}
		sails = append(sails, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sails: %w", err)
	}

	return sails, total, nil
}

// GetStats aggregates job outcomes over every recorded sail.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &Stats{CountByStatus: make(map[string]int)}
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM sails").Scan(&stats.Sails); err != nil {
		return nil, fmt.Errorf("count sails: %w", err)
	}

	var avg sql.NullFloat64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*), AVG(duration_ms) FROM sail_jobs",
	).Scan(&stats.Jobs, &avg); err != nil {
		return nil, fmt.Errorf("aggregate jobs: %w", err)
	}
	stats.AvgDurationMS = avg.Float64

	rows, err := tx.QueryContext(ctx, "SELECT status, COUNT(*) FROM sail_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return stats, nil
}
