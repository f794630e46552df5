package email

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/mixelka/mailsync/pkg/models"
)

// ErrNotSupported is returned for capabilities a provider cannot express,
// such as backward pagination over the Gmail history API.
var ErrNotSupported = errors.New("operation not supported by provider")

// Client is the provider-agnostic mailbox capability set. One implementation
// exists per provider tag (gmail, imap); callers never branch on the variant.
//
// A Client is bound to a single account and is not safe for concurrent use:
// a mailbox session or token refresh must not be shared across calls.
type Client interface {
	// FetchRecent returns up to n most recent inbox messages, newest first.
	FetchRecent(ctx context.Context, n int) ([]*models.EmailMessage, error)

	// FetchSince returns messages that arrived after the given cursor
	// (Gmail history id, IMAP UID), bounded by n.
	FetchSince(ctx context.Context, cursor uint64, n int) ([]*models.EmailMessage, error)

	// FetchBefore pages backward from the cursor for historical backfill.
	FetchBefore(ctx context.Context, cursor uint64, n int) ([]*models.EmailMessage, error)

	// CurrentCursor returns the mailbox's current watermark. It must be
	// persisted after every successful poll, even one that fetched nothing:
	// the watermark advances independently of visible new mail.
	CurrentCursor(ctx context.Context) (uint64, error)

	// Archive removes the given messages from the inbox view. The messages
	// stay retrievable outside the inbox; callers must not assume deletion.
	Archive(ctx context.Context, providerMessageIDs []string) error

	// Close releases the underlying session.
	Close()
}

// Factory resolves an account to a connected Client for its provider.
type Factory func(ctx context.Context, account *models.MailAccount) (Client, error)

// authSignals are substrings of error text that indicate an expired or
// revoked credential rather than a transient transport failure.
var authSignals = []string{
	"unauthorized",
	"invalid_grant",
	"token",
	"refresh",
	"authentication failed",
	"login failed",
	"invalid credentials",
}

// IsAuthError reports whether err indicates the account needs re-consent.
// Accounts failing this way are parked in auth_required instead of being
// retried blindly.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range authSignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}
