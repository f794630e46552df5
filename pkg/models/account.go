package models

import "time"

// Provider values for MailAccount.Provider. The provider tag selects which
// mail client implementation serves the account.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

// Sync status values for MailAccount.SyncStatus.
const (
	SyncPending      = "pending"
	SyncSyncing      = "syncing"
	SyncSuccess      = "success"
	SyncFailed       = "failed"
	SyncAuthRequired = "auth_required"
)

// MailAccount represents a remote mailbox being synchronized.
// Accounts are created by the onboarding flow; the sync engine only
// updates cursor, status and last-sync fields.
type MailAccount struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	Provider     string     `db:"provider"`      // "gmail" or "imap"
	IMAPServer   string     `db:"imap_server"`   // host:port, resolved from the address when empty
	Password     string     `db:"password"`      // IMAP credential
	RefreshToken string     `db:"refresh_token"` // OAuth credential
	Cursor       uint64     `db:"sync_cursor"`   // Gmail history id or IMAP UID watermark
	LastSyncedAt *time.Time `db:"last_synced_at"`
	SyncStatus   string     `db:"sync_status"`
	LastError    string     `db:"last_error"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// HasCredential reports whether the account carries a credential usable
// by its provider's client.
func (a *MailAccount) HasCredential() bool {
	switch a.Provider {
	case ProviderGmail:
		return a.RefreshToken != ""
	case ProviderIMAP:
		return a.Password != ""
	}
	return false
}
