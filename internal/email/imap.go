package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mixelka/mailsync/pkg/models"
)

// IMAPConfig configuration for the IMAP client variant
type IMAPConfig struct {
	Email       string
	Password    string
	Server      string // host:port
	DialTimeout time.Duration
}

// IMAPClient is the UID-based client variant for generic IMAP mailboxes.
// The cursor is the highest seen UID in INBOX.
type IMAPClient struct {
	config     IMAPConfig
	accountID  int64
	normalizer *Normalizer
	logger     *slog.Logger
	client     *client.Client
}

// NewIMAPClient connects over TLS, authenticates and selects INBOX.
func NewIMAPClient(ctx context.Context, account *models.MailAccount, cfg IMAPConfig, logger *slog.Logger) (*IMAPClient, error) {
	c := &IMAPClient{
		config:     cfg,
		accountID:  account.ID,
		normalizer: NewNormalizer(logger),
		logger:     logger.With("email", cfg.Email),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *IMAPClient) connect(ctx context.Context) error {
	c.logger.Debug("connecting to IMAP server", "server", c.config.Server)

	timeout := c.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", c.config.Server, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := imapClient.Login(c.config.Email, c.config.Password); err != nil {
		imapClient.Logout()
		return fmt.Errorf("login failed: %w", err)
	}

	c.client = imapClient
	return nil
}

func (c *IMAPClient) selectInbox() (*imap.MailboxStatus, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}
	mbox, err := c.client.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	return mbox, nil
}

// FetchRecent fetches the newest n messages by sequence window, newest first.
func (c *IMAPClient) FetchRecent(ctx context.Context, n int) ([]*models.EmailMessage, error) {
	mbox, err := c.selectInbox()
	if err != nil {
		return nil, err
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(n) {
		from = mbox.Messages - uint32(n) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	msgs, err := c.fetch(seqSet, false, 0)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(msgs)
	return msgs, nil
}

// FetchSince fetches messages with UID > cursor, bounded by max, oldest
// first; when the batch exceeds max, the newest messages are the ones cut.
func (c *IMAPClient) FetchSince(ctx context.Context, cursor uint64, max int) ([]*models.EmailMessage, error) {
	if _, err := c.selectInbox(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(uint32(cursor)+1, 0) // 0 means * (all)

	// The (cursor+1):* range echoes the highest message back when nothing is
	// newer, so results are filtered to UIDs strictly above the cursor.
	msgs, err := c.fetch(seqSet, true, uint32(cursor))
	if err != nil {
		return nil, err
	}
	sortOldestFirst(msgs)
	if len(msgs) > max {
		msgs = msgs[:max]
	}
	return msgs, nil
}

// FetchBefore pages backward from the cursor for historical backfill,
// newest first.
func (c *IMAPClient) FetchBefore(ctx context.Context, cursor uint64, max int) ([]*models.EmailMessage, error) {
	if cursor <= 1 {
		return nil, nil
	}
	if _, err := c.selectInbox(); err != nil {
		return nil, err
	}

	to := uint32(cursor) - 1
	from := uint32(1)
	if uint64(to) > uint64(max) {
		from = to - uint32(max) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, to)

	msgs, err := c.fetch(seqSet, true, 0)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(msgs)
	if len(msgs) > max {
		msgs = msgs[:max]
	}
	return msgs, nil
}

// fetch retrieves raw message bytes for the given set and normalizes each.
// A single message's parse failure is logged and skipped.
func (c *IMAPClient) fetch(seqSet *imap.SeqSet, byUID bool, aboveUID uint32) ([]*models.EmailMessage, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected")
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 100)
	done := make(chan error, 1)

	go func() {
		if byUID {
			done <- c.client.UidFetch(seqSet, items, messages)
		} else {
			done <- c.client.Fetch(seqSet, items, messages)
		}
	}()

	var result []*models.EmailMessage
	for msg := range messages {
		if aboveUID != 0 && msg.Uid <= aboveUID {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			c.logger.Warn("message without body section", "uid", msg.Uid)
			continue
		}
		parsed, err := c.normalizer.ParseRaw(c.accountID, msg.Uid, body)
		if err != nil {
			c.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		result = append(result, parsed)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	return result, nil
}

// CurrentCursor returns the highest UID present in INBOX.
func (c *IMAPClient) CurrentCursor(ctx context.Context) (uint64, error) {
	if _, err := c.selectInbox(); err != nil {
		return 0, err
	}

	criteria := imap.NewSearchCriteria()
	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search: %w", err)
	}

	var highest uint32
	for _, uid := range uids {
		if uid > highest {
			highest = uid
		}
	}
	return uint64(highest), nil
}

// Archive marks the messages \Deleted and expunges them. For the mailboxes
// this engine targets that removes them from INBOX while leaving them
// retrievable elsewhere; callers must not assume permanent deletion.
func (c *IMAPClient) Archive(ctx context.Context, providerMessageIDs []string) error {
	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	if len(providerMessageIDs) == 0 {
		return nil
	}
	if _, err := c.client.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}

	seqSet := new(imap.SeqSet)
	for _, id := range providerMessageIDs {
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", id, err)
		}
		seqSet.AddNum(uint32(uid))
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.DeletedFlag}

	if err := c.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark as deleted: %w", err)
	}
	if err := c.client.Expunge(nil); err != nil {
		return fmt.Errorf("failed to expunge: %w", err)
	}
	return nil
}

// Close logs out, force-closing the connection if the server stalls.
func (c *IMAPClient) Close() {
	imapClient := c.client
	c.client = nil
	if imapClient == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		imapClient.Logout()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		imapClient.Terminate()
	}
}

func sortNewestFirst(msgs []*models.EmailMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		return uidOf(msgs[i]) > uidOf(msgs[j])
	})
}

func sortOldestFirst(msgs []*models.EmailMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		return uidOf(msgs[i]) < uidOf(msgs[j])
	})
}

func uidOf(m *models.EmailMessage) uint64 {
	uid, _ := strconv.ParseUint(m.ProviderMessageID, 10, 64)
	return uid
}
