package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/mailsync/pkg/models"
)

// CreateTaskCandidate stores a todo proposal synthesized from a message
func (db *DB) CreateTaskCandidate(ctx context.Context, cand *models.TaskCandidate) error {
	query := `
		INSERT INTO task_candidates (id, message_id, account_id, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		cand.ID,
		cand.MessageID,
		cand.AccountID,
		cand.Title,
		cand.Description,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create task candidate: %w", err)
	}
	cand.CreatedAt = now
	return nil
}

// ListTaskCandidates returns candidates for an account, newest first
func (db *DB) ListTaskCandidates(ctx context.Context, accountID int64) ([]*models.TaskCandidate, error) {
	var cands []*models.TaskCandidate
	query := `SELECT * FROM task_candidates WHERE account_id = ? ORDER BY created_at DESC, id`
	err := db.SelectContext(ctx, &cands, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task candidates: %w", err)
	}
	return cands, nil
}
