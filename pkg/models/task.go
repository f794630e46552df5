package models

import "time"

// TaskCandidate is a todo proposal synthesized from an actionable message.
// It is handed to the todo workflow for approval; this engine only creates it.
type TaskCandidate struct {
	ID          string    `db:"id"` // UUID
	MessageID   int64     `db:"message_id"`
	AccountID   int64     `db:"account_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProcessStats aggregates one processor run for logging.
type ProcessStats struct {
	Processed int
	Matched   int
	Proposed  int
	Ignored   int
	Errors    int
}
