// Package state tracks local sync state in SQLite: the per-file
// last-synchronized map consulted by incremental syncs, and a history of
// sync runs.
package state

import "time"

// RunStatus is the lifecycle state of one sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// FileState records the last successful sync of one vault file.
type FileState struct {
	Path        string
	ContentHash string
	SyncedAt    time.Time
}

// Run is one force-sync invocation.
type Run struct {
	ID             string
	Status         RunStatus
	StartedAt      time.Time
	CompletedAt    time.Time
	FilesProcessed int
	FilesTotal     int
	Error          string
}

// Store is the persistence surface for sync state.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// FileStates returns the full per-file last-synced map keyed by path.
	FileStates() (map[string]FileState, error)
	UpsertFileState(fs FileState) error
	DeleteFileState(path string) error
	// ResetFileStates drops all file state, forcing the next sync to treat
	// every file as new.
	ResetFileStates() error

	CreateRun() (*Run, error)
	CompleteRun(id string, status RunStatus, processed, total int, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
}
