package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
	RunStatusFailed      = "failed"
)

// Run represents one campaign run
type Run struct {
	ID          uuid.UUID  `json:"id"`
	InputPath   string     `json:"input_path"`
	Status      string     `json:"status"`
	Processed   int        `json:"processed"`
	Sent        int        `json:"sent"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResultFilters holds optional filters for listing results
type ResultFilters struct {
	RunID  string
	Status string // status kind, e.g. "sent" or "failed"
	Limit  int
}
