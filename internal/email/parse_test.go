package email

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartAlternative = "Subject: Quarterly report\r\n" +
	"From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com, carol@example.com\r\n" +
	"Cc: dave@example.com\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=frontier\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello <b>Bob</b>,</p><p>report attached</p>\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob,\r\nreport attached\r\n" +
	"--frontier--\r\n"

func TestParseRawMultipartAlternative(t *testing.T) {
	n := NewNormalizer(slog.Default())

	msg, err := n.ParseRaw(7, 42, strings.NewReader(multipartAlternative))
	require.NoError(t, err)

	assert.Equal(t, int64(7), msg.AccountID)
	assert.Equal(t, "42", msg.ProviderMessageID)
	assert.Equal(t, "Quarterly report", msg.Subject)
	assert.Equal(t, "Alice Example", msg.FromName)
	assert.Equal(t, "alice@example.com", msg.FromAddr)
	assert.Equal(t, `["bob@example.com","carol@example.com"]`, msg.ToAddrs)
	assert.Equal(t, `["dave@example.com"]`, msg.CcAddrs)

	// text/plain wins even though html came first.
	assert.Contains(t, msg.BodyText, "Hello Bob,")
	assert.NotContains(t, msg.BodyText, "<p>")
	assert.Contains(t, msg.BodyHTML, "<b>Bob</b>")

	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), msg.ReceivedAt)
	assert.Equal(t, time.UTC, msg.ReceivedAt.Location())
	assert.False(t, msg.HasAttachments)
	assert.Equal(t, "Hello Bob, report attached", msg.Snippet)
}

func TestParseRawHTMLOnlyFallsBackToText(t *testing.T) {
	raw := "Subject: hi\r\n" +
		"From: alice@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><p>first line</p><p>second line</p></body></html>\r\n"

	n := NewNormalizer(slog.Default())
	msg, err := n.ParseRaw(1, 1, strings.NewReader(raw))
	require.NoError(t, err)

	assert.Contains(t, msg.BodyText, "first line")
	assert.Contains(t, msg.BodyText, "second line")
	assert.NotContains(t, msg.BodyText, "<p>")
}

func TestParseRawAttachment(t *testing.T) {
	raw := "Subject: invoice\r\n" +
		"From: alice@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=mixed\r\n" +
		"\r\n" +
		"--mixed\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--mixed\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--mixed--\r\n"

	n := NewNormalizer(slog.Default())
	msg, err := n.ParseRaw(1, 2, strings.NewReader(raw))
	require.NoError(t, err)

	assert.True(t, msg.HasAttachments)
	assert.Contains(t, msg.BodyText, "see attached")
}

func TestParseRawDropsNonUTF8Body(t *testing.T) {
	// The text/plain part carries raw latin-1 bytes, which are not valid
	// UTF-8; it must be dropped without failing the message, leaving the
	// html part to supply the body.
	raw := "Subject: caf\r\n" +
		"From: alice@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=frontier\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"caf\xe9 menu\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>cafe menu</p>\r\n" +
		"--frontier--\r\n"

	n := NewNormalizer(slog.Default())
	msg, err := n.ParseRaw(1, 5, strings.NewReader(raw))
	require.NoError(t, err)

	assert.Contains(t, msg.BodyText, "cafe menu")
	assert.NotContains(t, msg.BodyText, "\xe9")
}

func TestParseRawNewsletterLabel(t *testing.T) {
	raw := "Subject: Weekly digest\r\n" +
		"From: news@example.com\r\n" +
		"List-Unsubscribe: <mailto:unsub@example.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"this week in things\r\n"

	n := NewNormalizer(slog.Default())
	msg, err := n.ParseRaw(1, 3, strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, `["newsletter"]`, msg.Labels)
}

func TestParseRawMissingDateDefaultsToNow(t *testing.T) {
	raw := "Subject: no date\r\n" +
		"From: alice@example.com\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	n := NewNormalizer(slog.Default())
	before := time.Now().UTC()
	msg, err := n.ParseRaw(1, 4, strings.NewReader(raw))
	require.NoError(t, err)

	assert.False(t, msg.ReceivedAt.Before(before))
	assert.False(t, msg.ReceivedAt.After(time.Now().UTC()))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "", Snippet(""))
	assert.Equal(t, "one two three", Snippet("one\r\ntwo\n\nthree\r"))
	assert.Equal(t, "a b", Snippet("  a   b  "))

	long := strings.Repeat("x", 300)
	assert.Len(t, Snippet(long), 200)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("Mon, 02 Jan 2006 15:04:05 -0700")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), got)

	_, err = ParseDate("not a date")
	assert.Error(t, err)
}
