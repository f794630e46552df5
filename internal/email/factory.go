package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mixelka/mailsync/internal/config"
	"github.com/mixelka/mailsync/pkg/models"
)

// Dialer builds connected clients per account, dispatching on the
// provider tag. It is the production implementation of Factory.
type Dialer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewDialer creates a new client dialer
func NewDialer(cfg *config.Config, logger *slog.Logger) *Dialer {
	return &Dialer{cfg: cfg, logger: logger}
}

// Dial resolves the account's provider and returns a connected Client.
func (d *Dialer) Dial(ctx context.Context, account *models.MailAccount) (Client, error) {
	switch account.Provider {
	case models.ProviderGmail:
		if !d.cfg.GmailEnabled() {
			return nil, fmt.Errorf("gmail account %s requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET", account.Email)
		}
		return NewGmailClient(ctx, account, GmailConfig{
			ClientID:     d.cfg.GoogleClientID,
			ClientSecret: d.cfg.GoogleClientSecret,
		}, d.logger)

	case models.ProviderIMAP:
		server := account.IMAPServer
		if server == "" {
			resolved, err := ResolveIMAPServer(account.Email)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve IMAP server for %s: %w", account.Email, err)
			}
			server = resolved
		}
		return NewIMAPClient(ctx, account, IMAPConfig{
			Email:       account.Email,
			Password:    account.Password,
			Server:      server,
			DialTimeout: d.cfg.IMAPDialTimeout,
		}, d.logger)

	default:
		return nil, fmt.Errorf("unknown provider %q for account %s", account.Provider, account.Email)
	}
}
