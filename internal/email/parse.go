package email

import (
	"encoding/json"
	"io"
	"log/slog"
	netmail "net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"

	"github.com/mixelka/mailsync/internal/parser"
	"github.com/mixelka/mailsync/pkg/models"
)

const snippetLength = 200

// Normalizer turns a provider-native message representation into the
// canonical EmailMessage record. Both client variants share it.
type Normalizer struct {
	html   *parser.HTMLText
	logger *slog.Logger
}

// NewNormalizer creates a new message normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		html:   parser.NewHTMLText(),
		logger: logger,
	}
}

// ParseRaw normalizes a raw RFC822 message (as fetched over IMAP) into an
// EmailMessage. The IMAP UID becomes the provider message id.
func (n *Normalizer) ParseRaw(accountID int64, uid uint32, r io.Reader) (*models.EmailMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, err
	}

	msg := &models.EmailMessage{
		AccountID:         accountID,
		ProviderMessageID: strconv.FormatUint(uint64(uid), 10),
		FetchedAt:         time.Now().UTC(),
	}

	// Header lookups are case-insensitive in go-message.
	header := mr.Header
	msg.Subject, _ = header.Subject()

	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromName = from[0].Name
		msg.FromAddr = from[0].Address
	}
	msg.ToAddrs = encodeAddressList(header, "To")
	msg.CcAddrs = encodeAddressList(header, "Cc")

	if date, err := header.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = date.UTC()
	} else {
		msg.ReceivedAt = time.Now().UTC()
	}

	var labels []string
	if header.Get("List-Unsubscribe") != "" {
		labels = append(labels, "newsletter")
	}
	msg.Labels = encodeStrings(labels)

	n.readParts(mr, msg)

	if msg.BodyText == "" && msg.BodyHTML != "" {
		if text, err := n.html.Text(msg.BodyHTML); err == nil {
			msg.BodyText = text
		}
	}
	if msg.Snippet == "" {
		msg.Snippet = Snippet(msg.BodyText)
	}

	return msg, nil
}

// readParts walks the MIME tree. The mail reader flattens nested multiparts,
// so each iteration sees one leaf part. text/plain wins; otherwise the first
// text part is kept as a fallback.
func (n *Normalizer) readParts(mr *mail.Reader, msg *models.EmailMessage) {
	var fallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One malformed part must not sink the message.
			n.logger.Warn("failed to read message part", "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if !utf8.Valid(body) {
				// Non-UTF-8 bodies are dropped, not crashed on.
				continue
			}
			switch {
			case strings.HasPrefix(ct, "text/plain"):
				if msg.BodyText == "" {
					msg.BodyText = string(body)
				}
			case strings.HasPrefix(ct, "text/html"):
				if msg.BodyHTML == "" {
					msg.BodyHTML = string(body)
				}
			default:
				if fallback == "" && strings.HasPrefix(ct, "text/") {
					fallback = string(body)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			if filename != "" || isAttachmentDisposition(h) {
				msg.HasAttachments = true
			}
		}
	}

	if msg.BodyText == "" && msg.BodyHTML == "" {
		msg.BodyText = fallback
	}
}

func isAttachmentDisposition(h *mail.AttachmentHeader) bool {
	disp, _, err := h.ContentDisposition()
	return err == nil && disp == "attachment"
}

// Snippet derives a preview from a body: line breaks collapsed to spaces,
// truncated to the first ~200 characters.
func Snippet(body string) string {
	s := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(body)
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength])
	}
	return s
}

// ParseDate parses an RFC 2822 date header, normalized to UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := netmail.ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func encodeAddressList(header mail.Header, key string) string {
	addrs, err := header.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return "[]"
	}
	list := make([]string, 0, len(addrs))
	for _, a := range addrs {
		list = append(list, a.Address)
	}
	return encodeStrings(list)
}

func encodeStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}
