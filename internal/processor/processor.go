package processor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/pkg/models"
)

const (
	titleLimit       = 100
	descriptionLimit = 500
)

// Classifier decides whether a message deserves a task candidate.
// The keyword matcher below is a deliberately simple default; swap in a
// different implementation to change the policy.
type Classifier interface {
	Actionable(subject string) bool
}

// KeywordClassifier matches a fixed keyword set against the subject,
// case-insensitively.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier with the default keyword set
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		keywords: []string{"todo", "action required", "please", "review", "urgent", "asap"},
	}
}

// Actionable reports whether the subject contains any keyword
func (c *KeywordClassifier) Actionable(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Processor consumes unprocessed messages in bounded batches, proposes
// task candidates for actionable ones and marks everything processed so
// no message is ever visited twice.
type Processor struct {
	db         *database.DB
	classifier Classifier
	logger     *slog.Logger
}

// New creates a new processor
func New(db *database.DB, classifier Classifier, logger *slog.Logger) *Processor {
	return &Processor{
		db:         db,
		classifier: classifier,
		logger:     logger.With("component", "processor"),
	}
}

// Run processes up to limit unprocessed messages and returns counters.
func (p *Processor) Run(ctx context.Context, limit int) (models.ProcessStats, error) {
	var stats models.ProcessStats

	msgs, err := p.db.ListUnprocessed(ctx, limit)
	if err != nil {
		return stats, err
	}

	for _, msg := range msgs {
		stats.Processed++

		if p.classifier.Actionable(msg.Subject) {
			stats.Matched++
			cand := buildCandidate(msg)
			if err := p.db.CreateTaskCandidate(ctx, cand); err != nil {
				stats.Errors++
				p.logger.Error("failed to create task candidate", "message_id", msg.ID, "error", err)
			} else {
				stats.Proposed++
				p.logger.Debug("proposed task candidate", "message_id", msg.ID, "title", cand.Title)
			}
		} else {
			stats.Ignored++
		}

		// Marked processed regardless of outcome to prevent reprocessing loops.
		if err := p.db.MarkProcessed(ctx, msg.ID); err != nil {
			stats.Errors++
			p.logger.Error("failed to mark message processed", "message_id", msg.ID, "error", err)
		}
	}

	return stats, nil
}

// buildCandidate synthesizes a todo proposal from an actionable message.
func buildCandidate(msg *models.EmailMessage) *models.TaskCandidate {
	body := msg.BodyText
	if body == "" {
		body = msg.Snippet
	}

	description := truncate(body, descriptionLimit)
	if description != "" {
		description += "\n\n"
	}
	description += "From: " + msg.Sender()

	return &models.TaskCandidate{
		ID:          uuid.NewString(),
		MessageID:   msg.ID,
		AccountID:   msg.AccountID,
		Title:       truncate(msg.Subject, titleLimit),
		Description: description,
	}
}

// truncate shortens s to limit characters, appending an ellipsis if cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
