// Package history persists a durable record of each analysis run — what
// the original CLI only ever printed to stdout ("Analysis complete. N
// markers in file.") and never stored. Grounded on the embedded-migration
// pattern used by the daemon's sqlite store.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is a durable record of one Analyze() call.
type Run struct {
	ID             string
	CastPath       string
	Agent          string
	StartedAt      time.Time
	FinishedAt     *time.Time
	ChunkCount     int
	SuccessRate    float64
	MarkersWritten int
	IsPartial      bool
}

// Store is the sqlite-backed analysis-run ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dsn and applies
// any pending embedded migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// StartRun inserts a new in-progress run record and returns its generated
// id.
func (s *Store) StartRun(ctx context.Context, castPath, agentName string, startedAt time.Time, chunkCount int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, cast_path, agent, started_at, chunk_count) VALUES (?, ?, ?, ?, ?)`,
		id, castPath, agentName, startedAt, chunkCount,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a completed run.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, successRate float64, markersWritten int, isPartial bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE analysis_runs SET finished_at = ?, success_rate = ?, markers_written = ?, is_partial = ? WHERE id = ?`,
		finishedAt, successRate, markersWritten, boolToInt(isPartial), id,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	return nil
}

// RunsForCast returns every recorded run for a given cast file path, most
// recent first.
func (s *Store) RunsForCast(ctx context.Context, castPath string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cast_path, agent, started_at, finished_at, chunk_count, success_rate, markers_written, is_partial
		 FROM analysis_runs WHERE cast_path = ? ORDER BY started_at DESC`,
		castPath,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finishedAt sql.NullTime
		var isPartial int
		if err := rows.Scan(&r.ID, &r.CastPath, &r.Agent, &r.StartedAt, &finishedAt, &r.ChunkCount, &r.SuccessRate, &r.MarkersWritten, &isPartial); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		r.IsPartial = isPartial != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
