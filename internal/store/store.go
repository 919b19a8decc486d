package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/metapool/metapool/pkg/types"
)

// ErrNotFound is returned by Get and Latest when no run matches.
var ErrNotFound = errors.New("run not found")

// Store is a SQLite-backed archive of immutable run snapshots.
// All methods are safe for concurrent use; database/sql serializes
// access to the single connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts a run snapshot. Snapshots are immutable: inserting an ID
// that already exists is an error, never an update.
func (s *Store) Put(run types.Run) error {
	if run.ID == "" {
		return fmt.Errorf("store: run has no ID: %w", types.ErrInvalidInput)
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("store: marshal run %s: %w", run.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO run (id, label, dataset, created_at, k, effect, se,
		                 ci_low, ci_high, level, q, p, degenerate, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.Dataset, run.CreatedAt.UTC().UnixNano(),
		run.Summary.K, run.Summary.Effect, run.Summary.SE,
		run.Summary.CILow, run.Summary.CIHigh, run.Summary.Level,
		run.Summary.Q, run.Summary.P, boolToInt(run.Summary.Degenerate),
		string(payload),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("store: run %s already exists (snapshots are immutable): %w", run.ID, err)
		}
		return fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given ID, or ErrNotFound.
func (s *Store) Get(id string) (types.Run, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM run WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, ErrNotFound
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("store: get run %s: %w", id, err)
	}
	return unmarshalRun(payload)
}

// Latest returns the most recently created run, or ErrNotFound when
// the store is empty.
func (s *Store) Latest() (types.Run, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM run ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, ErrNotFound
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("store: latest run: %w", err)
	}
	return unmarshalRun(payload)
}

// List returns up to limit runs, newest first. limit ≤ 0 means no limit.
func (s *Store) List(limit int) ([]types.Run, error) {
	query := `SELECT payload FROM run ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		run, err := unmarshalRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return runs, nil
}

// Count returns the total number of stored runs.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count runs: %w", err)
	}
	return n, nil
}

func unmarshalRun(payload string) (types.Run, error) {
	var run types.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return types.Run{}, fmt.Errorf("store: unmarshal run: %w", err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
