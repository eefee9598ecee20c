// Package task defines the per-identifier work record and its store.
package task

import (
	"encoding/json"
	"time"
)

// Status is the task state machine. Transitions are monotonic:
// PENDING -> IN_PROGRESS -> {DONE, ERROR}. The only way out of a
// terminal state is a fresh re-enqueue, which resets to PENDING.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusError      Status = "ERROR"
)

// Terminal reports whether the status ends the task's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransitionTo reports whether the transition is allowed by the
// state machine.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusDone || next == StatusError
	case StatusDone, StatusError:
		return next == StatusPending
	default:
		return false
	}
}

// Task is one identifier's enqueue-to-completion record. The identifier
// is the primary key; re-submission overwrites in place.
type Task struct {
	Identifier string `json:"identifier"`
	Status     Status `json:"status"`

	EnqueuedAt  time.Time  `json:"enqueuedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// RawResult holds the lookup payload on DONE or the error
	// descriptor on ERROR; nil while PENDING/IN_PROGRESS.
	RawResult json.RawMessage `json:"rawResult,omitempty"`

	// Promoted summary fields, duplicated from the raw result on DONE
	// for fast summary queries.
	Name               string `json:"nome,omitempty"`
	RegistrationStatus string `json:"situacao,omitempty"`
}
