// Package store defines job record persistence. Two backends implement the
// interface: an in-process map for development and a SQLite database for
// durability across restarts.
package store

import (
	"time"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
)

// Status is a job's lifecycle phase.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one simulation job as persisted. MarketState and Report are nil
// until the job completes; Error is empty unless the job failed.
type Record struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	Progress    int              `json:"progress"` // 0–100
	Idea        string           `json:"idea"`
	Region      string           `json:"region"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	MarketState *market.State    `json:"marketState,omitempty"`
	Report      *advisory.Report `json:"report,omitempty"`
	Error       string           `json:"error,omitempty"`
}
