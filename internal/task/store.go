// internal/task/store.go
package task

import (
	"context"
	"database/sql"

	apperrors "cnpj-workers/internal/common/errors"
	"cnpj-workers/internal/common/logger"
)

// Store is the narrow persistence contract used by the worker and the
// enqueue surface: idempotent batch enqueue, status transitions, FIFO
// pending query and a full stream for the read side.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "task-store"}),
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tasks (
	identifier   TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	enqueued_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ,
	raw_result   JSONB,
	nome         TEXT,
	situacao     TEXT
);
CREATE INDEX IF NOT EXISTS tasks_status_enqueued_idx ON tasks (status, enqueued_at);
`

// EnsureSchema creates the tasks table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return apperrors.NewStoreError("ensure-schema", err)
	}
	return nil
}

const enqueueQuery = `
INSERT INTO tasks (identifier, status, enqueued_at, completed_at, raw_result, nome, situacao)
VALUES ($1, 'PENDING', NOW(), NULL, NULL, NULL, NULL)
ON CONFLICT (identifier) DO UPDATE SET
	status = 'PENDING',
	enqueued_at = NOW(),
	completed_at = NULL,
	raw_result = NULL,
	nome = NULL,
	situacao = NULL`

// Enqueue upserts every identifier as a fresh PENDING task inside a
// single transaction, so a submitted list either fully lands or fully
// fails. Re-enqueuing an existing task resets it to PENDING and assigns
// a new enqueued_at, queuing it behind tasks already waiting.
func (s *Store) Enqueue(ctx context.Context, identifiers []string) error {
	if len(identifiers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("enqueue-begin", err)
	}

	for _, id := range identifiers {
		if _, err := tx.ExecContext(ctx, enqueueQuery, id); err != nil {
			tx.Rollback()
			return apperrors.NewStoreError("enqueue-upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("enqueue-commit", err)
	}

	s.logger.Info("enqueued batch", map[string]interface{}{"count": len(identifiers)})
	return nil
}

const pendingQuery = `
SELECT identifier, status, enqueued_at, completed_at, raw_result, nome, situacao
FROM tasks
WHERE status = 'PENDING'
ORDER BY enqueued_at ASC
LIMIT $1`

// PendingBatch returns up to limit PENDING tasks, oldest first.
func (s *Store) PendingBatch(ctx context.Context, limit int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, pendingQuery, limit)
	if err != nil {
		return nil, apperrors.NewStoreError("pending-batch", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// MarkInProgress transitions a PENDING task to IN_PROGRESS. The status
// write is a soft lock against duplicate pickup, not a real lease: a
// worker crash mid-task leaves the task stranded IN_PROGRESS and
// nothing reclaims it.
func (s *Store) MarkInProgress(ctx context.Context, identifier string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'IN_PROGRESS' WHERE identifier = $1 AND status = 'PENDING'`,
		identifier,
	)
	if err != nil {
		return false, apperrors.NewStoreError("mark-in-progress", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("mark-in-progress", err)
	}
	return n == 1, nil
}

// Complete writes the terminal DONE state: full raw result, completion
// timestamp and the promoted summary fields.
func (s *Store) Complete(ctx context.Context, identifier string, rawResult []byte, name, registrationStatus string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'DONE', raw_result = $2, nome = $3, situacao = $4, completed_at = NOW()
		 WHERE identifier = $1`,
		identifier, rawResult, name, registrationStatus,
	)
	if err != nil {
		return apperrors.NewStoreError("complete", err)
	}
	return nil
}

// Fail writes the terminal ERROR state with the error descriptor as the
// raw result. The classification is preserved there; nothing retries
// the task automatically.
func (s *Store) Fail(ctx context.Context, identifier string, rawResult []byte) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'ERROR', raw_result = $2, completed_at = NOW()
		 WHERE identifier = $1`,
		identifier, rawResult,
	)
	if err != nil {
		return apperrors.NewStoreError("fail", err)
	}
	return nil
}

const allQuery = `
SELECT identifier, status, enqueued_at, completed_at, raw_result, nome, situacao
FROM tasks
ORDER BY enqueued_at ASC`

// All streams every task, oldest first, for the read side.
func (s *Store) All(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, allQuery)
	if err != nil {
		return nil, apperrors.NewStoreError("all", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// PendingCount returns the current queue depth.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = 'PENDING'`).Scan(&n)
	if err != nil {
		return 0, apperrors.NewStoreError("pending-count", err)
	}
	return n, nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var (
			t           Task
			status      string
			completedAt sql.NullTime
			rawResult   []byte
			name        sql.NullString
			regStatus   sql.NullString
		)
		if err := rows.Scan(&t.Identifier, &status, &t.EnqueuedAt, &completedAt, &rawResult, &name, &regStatus); err != nil {
			return nil, apperrors.NewStoreError("scan", err)
		}
		t.Status = Status(status)
		if completedAt.Valid {
			ts := completedAt.Time
			t.CompletedAt = &ts
		}
		if len(rawResult) > 0 {
			t.RawResult = rawResult
		}
		t.Name = name.String
		t.RegistrationStatus = regStatus.String
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("scan", err)
	}
	return tasks, nil
}
