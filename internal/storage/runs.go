package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/loot-randomizer/pkg/randomizer"
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	seed       INTEGER NOT NULL,
	mode       TEXT NOT NULL,
	archive    TEXT NOT NULL,
	datapack   TEXT NOT NULL,
	relaxed    INTEGER NOT NULL,
	failures   INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	yield  TEXT NOT NULL,
	PRIMARY KEY (run_id, source),
	UNIQUE (run_id, yield)
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);
`

// RunStore keeps the history of randomization runs in SQLite.
type RunStore struct {
	db  *sql.DB
	log *slog.Logger
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenRuns opens the run history at path, creating the schema if needed.
// ":memory:" opens a private in-memory database.
func OpenRuns(path string, log *slog.Logger) (*RunStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &RunStore{db: db, log: log}, nil
}

// Close closes the SQLite handle.
func (s *RunStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records run and its assignment in one transaction. An empty
// run.ID is filled with a new UUID; a zero CreatedAt with the current time.
func (s *RunStore) SaveRun(ctx context.Context, run *Run, table *randomizer.Table) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, seed, mode, archive, datapack, relaxed, failures, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.Mode, run.Archive, run.Datapack, run.Relaxed, run.Failures, toMillis(run.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO assignments (run_id, source, yield) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare assignment insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range table.Pairs() {
		if _, err := stmt.ExecContext(ctx, run.ID, p.Source, p.Yield); err != nil {
			return fmt.Errorf("insert assignment %s: %w", p.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	s.log.Info("run recorded", "run_id", run.ID, "seed", run.Seed, "pairs", table.Len())
	return nil
}

// LoadRun returns a recorded run and its assignment.
func (s *RunStore) LoadRun(ctx context.Context, id string) (*Run, *randomizer.Table, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, seed, mode, archive, datapack, relaxed, failures, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, yield FROM assignments WHERE run_id = ? ORDER BY source`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load assignment %s: %w", id, err)
	}
	defer rows.Close()

	var pairs []randomizer.Pair
	for rows.Next() {
		var p randomizer.Pair
		if err := rows.Scan(&p.Source, &p.Yield); err != nil {
			return nil, nil, fmt.Errorf("scan assignment: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate assignment: %w", err)
	}
	table, err := randomizer.NewTable(pairs)
	if err != nil {
		return nil, nil, fmt.Errorf("load assignment %s: %w", id, err)
	}
	return run, table, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, seed, mode, archive, datapack, relaxed, failures, created_at
	          FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run     Run
		created int64
	)
	if err := row.Scan(&run.ID, &run.Seed, &run.Mode, &run.Archive, &run.Datapack, &run.Relaxed, &run.Failures, &created); err != nil {
		return nil, err
	}
	run.CreatedAt = fromMillis(created)
	return &run, nil
}
