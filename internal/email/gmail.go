package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	netmail "net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mixelka/mailsync/pkg/models"
)

// GmailConfig holds the OAuth application credentials shared by all
// gmail accounts. The per-account refresh token lives on the account.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
}

// GmailClient is the history-based client variant. The cursor is the
// mailbox history id; the token source refreshes the access token
// transparently from the stored refresh token.
type GmailClient struct {
	accountID  int64
	svc        *gmail.Service
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewGmailClient builds an authenticated Gmail service for one account.
func NewGmailClient(ctx context.Context, account *models.MailAccount, cfg GmailConfig, logger *slog.Logger) (*GmailClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("gmail oauth credentials not configured")
	}
	if account.RefreshToken == "" {
		return nil, fmt.Errorf("account %s has no refresh token", account.Email)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}
	src := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailClient{
		accountID:  account.ID,
		svc:        svc,
		normalizer: NewNormalizer(logger),
		logger:     logger.With("email", account.Email),
	}, nil
}

// FetchRecent lists the n most recent INBOX message ids and fetches full
// detail per id. Per-message failures are logged and skipped.
func (c *GmailClient) FetchRecent(ctx context.Context, n int) ([]*models.EmailMessage, error) {
	resp, err := c.svc.Users.Messages.List("me").
		LabelIds("INBOX").
		MaxResults(int64(n)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		ids = append(ids, ref.Id)
	}
	return c.fetchDetails(ctx, ids), nil
}

// FetchSince requests history entries after the cursor, keeps only
// message-added events, deduplicates ids within the batch and fetches
// detail for each. A stale cursor (history expired, HTTP 404) falls back
// to FetchRecent.
func (c *GmailClient) FetchSince(ctx context.Context, cursor uint64, n int) ([]*models.EmailMessage, error) {
	seen := make(map[string]bool)
	var ids []string
	pageToken := ""

	for {
		call := c.svc.Users.History.List("me").
			StartHistoryId(cursor).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
				c.logger.Warn("history cursor expired, falling back to recent fetch", "cursor", cursor)
				return c.FetchRecent(ctx, n)
			}
			return nil, fmt.Errorf("failed to list history: %w", err)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil || seen[added.Message.Id] {
					continue
				}
				seen[added.Message.Id] = true
				ids = append(ids, added.Message.Id)
			}
		}

		if resp.NextPageToken == "" || len(ids) >= n {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) > n {
		ids = ids[:n]
	}
	return c.fetchDetails(ctx, ids), nil
}

// FetchBefore is not expressible over the history API; historical backfill
// is an IMAP capability.
func (c *GmailClient) FetchBefore(ctx context.Context, cursor uint64, n int) ([]*models.EmailMessage, error) {
	return nil, ErrNotSupported
}

// CurrentCursor returns the mailbox's current history id from the profile.
func (c *GmailClient) CurrentCursor(ctx context.Context) (uint64, error) {
	profile, err := c.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.HistoryId, nil
}

// Archive removes the INBOX label from each message in one batch call.
// The messages remain retrievable under All Mail.
func (c *GmailClient) Archive(ctx context.Context, providerMessageIDs []string) error {
	if len(providerMessageIDs) == 0 {
		return nil
	}
	req := &gmail.BatchModifyMessagesRequest{
		Ids:            providerMessageIDs,
		RemoveLabelIds: []string{"INBOX"},
	}
	if err := c.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to archive messages: %w", err)
	}
	return nil
}

// Close is a no-op: the Gmail service holds no persistent session.
func (c *GmailClient) Close() {}

// fetchDetails fetches full detail per id, skipping individual failures.
func (c *GmailClient) fetchDetails(ctx context.Context, ids []string) []*models.EmailMessage {
	result := make([]*models.EmailMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			c.logger.Warn("failed to fetch message", "id", id, "error", err)
			continue
		}
		result = append(result, c.normalize(msg))
	}
	return result
}

// normalize converts a Gmail API message into the canonical record.
func (c *GmailClient) normalize(msg *gmail.Message) *models.EmailMessage {
	out := &models.EmailMessage{
		AccountID:         c.accountID,
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		HistoryID:         msg.HistoryId,
		Snippet:           msg.Snippet,
		Labels:            encodeStrings(msg.LabelIds),
		FetchedAt:         time.Now().UTC(),
		ReceivedAt:        time.UnixMilli(msg.InternalDate).UTC(),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch {
			case strings.EqualFold(h.Name, "Subject"):
				out.Subject = h.Value
			case strings.EqualFold(h.Name, "From"):
				out.FromName, out.FromAddr = splitAddress(h.Value)
			case strings.EqualFold(h.Name, "To"):
				out.ToAddrs = encodeStrings(splitAddresses(h.Value))
			case strings.EqualFold(h.Name, "Cc"):
				out.CcAddrs = encodeStrings(splitAddresses(h.Value))
			case strings.EqualFold(h.Name, "Date"):
				if t, err := ParseDate(h.Value); err == nil {
					out.ReceivedAt = t
				}
			}
		}

		extractGmailBody(msg.Payload, out)
		out.HasAttachments = gmailHasAttachment(msg.Payload)
	}

	if out.BodyText == "" && out.BodyHTML != "" {
		if text, err := c.normalizer.html.Text(out.BodyHTML); err == nil {
			out.BodyText = text
		}
	}
	if out.ToAddrs == "" {
		out.ToAddrs = "[]"
	}
	if out.CcAddrs == "" {
		out.CcAddrs = "[]"
	}
	if out.Snippet == "" {
		out.Snippet = Snippet(out.BodyText)
	}
	return out
}

// extractGmailBody walks the payload tree recursively, preferring
// text/plain and keeping the first text/html as fallback.
func extractGmailBody(part *gmail.MessagePart, out *models.EmailMessage) {
	if part == nil {
		return
	}
	if part.Body != nil && part.Body.Data != "" {
		data, err := decodeBase64URL(part.Body.Data)
		if err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain") && out.BodyText == "":
				out.BodyText = string(data)
			case strings.HasPrefix(part.MimeType, "text/html") && out.BodyHTML == "":
				out.BodyHTML = string(data)
			}
		}
	}
	for _, p := range part.Parts {
		extractGmailBody(p, out)
	}
}

// gmailHasAttachment reports whether any part carries a filename, recursively.
func gmailHasAttachment(part *gmail.MessagePart) bool {
	if part == nil {
		return false
	}
	if part.Filename != "" {
		return true
	}
	for _, p := range part.Parts {
		if gmailHasAttachment(p) {
			return true
		}
	}
	return false
}

func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// splitAddress parses one "Name <addr>" header value.
func splitAddress(value string) (name, addr string) {
	parsed, err := netmail.ParseAddress(value)
	if err != nil {
		return "", strings.TrimSpace(value)
	}
	return parsed.Name, parsed.Address
}

// splitAddresses parses a comma-separated address header into bare addresses.
func splitAddresses(value string) []string {
	parsed, err := netmail.ParseAddressList(value)
	if err != nil {
		return []string{strings.TrimSpace(value)}
	}
	addrs := make([]string, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, a.Address)
	}
	return addrs
}
