package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/mailsync/pkg/models"
)

// InsertMessage stores a message keyed by (account_id, provider_message_id).
// A duplicate is a no-op: it returns false without touching the stored row,
// so overlapping fetch windows stay idempotent.
func (db *DB) InsertMessage(ctx context.Context, msg *models.EmailMessage) (bool, error) {
	query := `
		INSERT OR IGNORE INTO email_messages (account_id, provider_message_id, thread_id, history_id, subject, from_addr, from_name, to_addrs, cc_addrs, snippet, body_text, body_html, labels, has_attachments, received_at, fetched_at, processed, archived_in_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if msg.FetchedAt.IsZero() {
		msg.FetchedAt = time.Now()
	}
	if msg.ToAddrs == "" {
		msg.ToAddrs = "[]"
	}
	if msg.CcAddrs == "" {
		msg.CcAddrs = "[]"
	}
	if msg.Labels == "" {
		msg.Labels = "[]"
	}
	result, err := db.ExecContext(ctx, query,
		msg.AccountID,
		msg.ProviderMessageID,
		msg.ThreadID,
		msg.HistoryID,
		msg.Subject,
		msg.FromAddr,
		msg.FromName,
		msg.ToAddrs,
		msg.CcAddrs,
		msg.Snippet,
		msg.BodyText,
		msg.BodyHTML,
		msg.Labels,
		msg.HasAttachments,
		msg.ReceivedAt,
		msg.FetchedAt,
		msg.Processed,
		msg.ArchivedInSource,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}

	msg.ID = id
	return true, nil
}

// GetMessageByID returns a message by ID
func (db *DB) GetMessageByID(ctx context.Context, id int64) (*models.EmailMessage, error) {
	var msg models.EmailMessage
	query := `SELECT * FROM email_messages WHERE id = ?`
	err := db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// ListUnprocessed returns unprocessed messages, oldest fetched first
func (db *DB) ListUnprocessed(ctx context.Context, limit int) ([]*models.EmailMessage, error) {
	var msgs []*models.EmailMessage
	query := `SELECT * FROM email_messages WHERE processed = false ORDER BY fetched_at, id LIMIT ?`
	err := db.SelectContext(ctx, &msgs, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed messages: %w", err)
	}
	return msgs, nil
}

// MarkProcessed flags a message as processed. Idempotent.
func (db *DB) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE email_messages SET processed = true, processed_at = ? WHERE id = ? AND processed = false`
	_, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

// MarkArchived flags a message as archived in its source mailbox. Idempotent.
func (db *DB) MarkArchived(ctx context.Context, accountID int64, providerMessageID string) error {
	query := `UPDATE email_messages SET archived_in_source = true WHERE account_id = ? AND provider_message_id = ?`
	_, err := db.ExecContext(ctx, query, accountID, providerMessageID)
	if err != nil {
		return fmt.Errorf("failed to mark message archived: %w", err)
	}
	return nil
}

// CountMessages returns the number of stored messages for an account
func (db *DB) CountMessages(ctx context.Context, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM email_messages WHERE account_id = ?`
	err := db.GetContext(ctx, &count, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
