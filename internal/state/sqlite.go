package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open connects to the database at path. Use ":memory:" for tests.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite database: %w", err)
	}
	if path == ":memory:" {
		// The pool would otherwise hand out fresh empty in-memory databases.
		db.SetMaxOpenConns(1)
	} else {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return fmt.Errorf("apply %q: %w", pragma, err)
			}
		}
	}
	s.db = db
	s.path = path
	s.logger.Debug("state store opened", "path", path)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FileStates implements Store.
func (s *SQLiteStore) FileStates() (map[string]FileState, error) {
	rows, err := s.db.Query(`SELECT path, content_hash, synced_at FROM file_states`)
	if err != nil {
		return nil, fmt.Errorf("query file states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]FileState)
	for rows.Next() {
		var fs FileState
		var syncedAt int64
		if err := rows.Scan(&fs.Path, &fs.ContentHash, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan file state: %w", err)
		}
		fs.SyncedAt = time.Unix(syncedAt, 0).UTC()
		states[fs.Path] = fs
	}
	return states, rows.Err()
}

// UpsertFileState implements Store.
func (s *SQLiteStore) UpsertFileState(fs FileState) error {
	syncedAt := fs.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO file_states (path, content_hash, synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			content_hash = excluded.content_hash,
			synced_at = excluded.synced_at`,
		fs.Path, fs.ContentHash, syncedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert file state %s: %w", fs.Path, err)
	}
	return nil
}

// DeleteFileState implements Store.
func (s *SQLiteStore) DeleteFileState(path string) error {
	if _, err := s.db.Exec(`DELETE FROM file_states WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete file state %s: %w", path, err)
	}
	return nil
}

// ResetFileStates implements Store.
func (s *SQLiteStore) ResetFileStates() error {
	if _, err := s.db.Exec(`DELETE FROM file_states`); err != nil {
		return fmt.Errorf("reset file states: %w", err)
	}
	return nil
}

// CreateRun implements Store.
func (s *SQLiteStore) CreateRun() (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO sync_runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), run.StartedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// CompleteRun implements Store.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, processed, total int, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = ?, completed_at = ?, files_processed = ?, files_total = ?, error = ?
		WHERE id = ?`,
		string(status), time.Now().UTC().Unix(), processed, total, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	return nil
}

// GetRun implements Store.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, status, started_at, completed_at, files_processed, files_total, error
		FROM sync_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns implements Store. Runs come back newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, status, started_at, completed_at, files_processed, files_total, error
		FROM sync_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var status string
	var startedAt int64
	var completedAt sql.NullInt64
	var errMsg sql.NullString
	if err := row.Scan(&run.ID, &status, &startedAt, &completedAt,
		&run.FilesProcessed, &run.FilesTotal, &errMsg); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		run.CompletedAt = time.Unix(completedAt.Int64, 0).UTC()
	}
	run.Error = errMsg.String
	return &run, nil
}
