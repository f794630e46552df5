package processor

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/pkg/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestAccount(t *testing.T, db *database.DB) *models.MailAccount {
	t.Helper()
	account := &models.MailAccount{
		Email:    "user@example.com",
		Provider: models.ProviderIMAP,
		Password: "secret",
		IsActive: true,
	}
	require.NoError(t, db.CreateAccount(context.Background(), account))
	return account
}

func storeMessage(t *testing.T, db *database.DB, accountID int64, providerID, subject, body string) *models.EmailMessage {
	t.Helper()
	msg := &models.EmailMessage{
		AccountID:         accountID,
		ProviderMessageID: providerID,
		Subject:           subject,
		FromAddr:          "alice@example.com",
		FromName:          "Alice",
		BodyText:          body,
		ReceivedAt:        time.Now().UTC(),
	}
	inserted, err := db.InsertMessage(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, inserted)
	return msg
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()

	cases := []struct {
		subject    string
		actionable bool
	}{
		{"Please review the contract", true},
		{"URGENT: server down", true},
		{"TODO for next sprint", true},
		{"Action Required: verify your account", true},
		{"need this asap", true},
		{"Weekly Newsletter", false},
		{"Re: lunch on friday", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.actionable, c.Actionable(tc.subject), "subject %q", tc.subject)
	}
}

func TestRunProposesCandidatesAndMarksEverything(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	account := newTestAccount(t, db)

	storeMessage(t, db, account.ID, "1", "Please review the Q3 budget", "numbers attached")
	storeMessage(t, db, account.ID, "2", "Weekly Newsletter", "news")
	storeMessage(t, db, account.ID, "3", "Re: lunch", "pizza?")
	storeMessage(t, db, account.ID, "4", "FYI only", "nothing to do")

	p := New(db, NewKeywordClassifier(), slog.Default())
	stats, err := p.Run(ctx, 100)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.Proposed)
	assert.Equal(t, 3, stats.Ignored)
	assert.Equal(t, 0, stats.Errors)

	cands, err := db.ListTaskCandidates(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Please review the Q3 budget", cands[0].Title)
	assert.Contains(t, cands[0].Description, "numbers attached")
	assert.Contains(t, cands[0].Description, "From: Alice <alice@example.com>")
	assert.NotEmpty(t, cands[0].ID)

	// Everything was marked, so a second run is a no-op.
	stats, err = p.Run(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
}

func TestRunRespectsLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	account := newTestAccount(t, db)

	for i := 0; i < 5; i++ {
		storeMessage(t, db, account.ID, string(rune('a'+i)), "FYI", "body")
	}

	p := New(db, NewKeywordClassifier(), slog.Default())
	stats, err := p.Run(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)

	stats, err = p.Run(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
}

func TestBuildCandidateTruncation(t *testing.T) {
	longSubject := strings.Repeat("s", 150)
	longBody := strings.Repeat("b", 600)

	msg := &models.EmailMessage{
		ID:        1,
		AccountID: 2,
		Subject:   longSubject,
		FromAddr:  "alice@example.com",
		BodyText:  longBody,
	}
	cand := buildCandidate(msg)

	assert.Equal(t, strings.Repeat("s", 100)+"...", cand.Title)
	assert.True(t, strings.HasPrefix(cand.Description, strings.Repeat("b", 500)+"..."))
	assert.True(t, strings.HasSuffix(cand.Description, "From: alice@example.com"))
}

func TestBuildCandidateFallsBackToSnippet(t *testing.T) {
	msg := &models.EmailMessage{
		Subject:  "Please call back",
		FromAddr: "bob@example.com",
		Snippet:  "short preview",
	}
	cand := buildCandidate(msg)
	assert.Contains(t, cand.Description, "short preview")
}
