package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/mailsync/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// CreateAccount creates a new mail account. Account creation belongs to the
// onboarding flow; it lives here for that flow and for tests.
func (db *DB) CreateAccount(ctx context.Context, account *models.MailAccount) error {
	query := `
		INSERT INTO mail_accounts (email, provider, imap_server, password, refresh_token, sync_cursor, sync_status, last_error, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if account.SyncStatus == "" {
		account.SyncStatus = models.SyncPending
	}
	result, err := db.ExecContext(ctx, query,
		account.Email,
		account.Provider,
		account.IMAPServer,
		account.Password,
		account.RefreshToken,
		account.Cursor,
		account.SyncStatus,
		account.LastError,
		account.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.MailAccount, error) {
	var account models.MailAccount
	query := `SELECT * FROM mail_accounts WHERE id = ?`
	err := db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountByEmail returns an account by its mailbox address
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*models.MailAccount, error) {
	var account models.MailAccount
	query := `SELECT * FROM mail_accounts WHERE email = ?`
	err := db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// ListPollableAccounts returns active accounts with a usable credential.
// Accounts stuck in auth_required are excluded until re-consent resets them.
func (db *DB) ListPollableAccounts(ctx context.Context) ([]*models.MailAccount, error) {
	var accounts []*models.MailAccount
	query := `
		SELECT * FROM mail_accounts
		WHERE is_active = true AND sync_status != ?
		ORDER BY id
	`
	err := db.SelectContext(ctx, &accounts, query, models.SyncAuthRequired)
	if err != nil {
		return nil, fmt.Errorf("failed to list pollable accounts: %w", err)
	}

	pollable := accounts[:0]
	for _, account := range accounts {
		if account.HasCredential() {
			pollable = append(pollable, account)
		}
	}
	return pollable, nil
}

// UpdateSyncStarted marks an account as syncing
func (db *DB) UpdateSyncStarted(ctx context.Context, id int64) error {
	query := `UPDATE mail_accounts SET sync_status = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, models.SyncSyncing, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark account syncing: %w", err)
	}
	return nil
}

// UpdateSyncSuccess records a successful poll. The stored cursor only ever
// advances: MAX keeps an older concurrent writer from regressing it.
func (db *DB) UpdateSyncSuccess(ctx context.Context, id int64, cursor uint64) error {
	now := time.Now()
	query := `
		UPDATE mail_accounts
		SET sync_status = ?, sync_cursor = MAX(sync_cursor, ?), last_synced_at = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`
	_, err := db.ExecContext(ctx, query, models.SyncSuccess, cursor, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to record sync success: %w", err)
	}
	return nil
}

// UpdateSyncFailed records a failed poll with the given status
// (failed or auth_required) and error text.
func (db *DB) UpdateSyncFailed(ctx context.Context, id int64, status, errText string) error {
	query := `UPDATE mail_accounts SET sync_status = ?, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, errText, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}
