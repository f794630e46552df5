package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mixelka/mailsync/internal/config"
	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/internal/processor"
	"github.com/mixelka/mailsync/pkg/models"
)

// Scheduler drives periodic multi-account polling. Each tick it loads the
// pollable accounts, fetches per account through the provider client,
// persists new messages, advances the cursor and then runs the processor
// over the unprocessed backlog.
//
// Accounts poll concurrently; work against one account stays on one
// goroutine with one client, because mailbox sessions and token refresh
// are not safe to share.
type Scheduler struct {
	db        *database.DB
	cfg       *config.Config
	factory   email.Factory
	limiter   *RateLimiter
	processor *processor.Processor
	logger    *slog.Logger
}

// New creates a new scheduler
func New(db *database.DB, cfg *config.Config, factory email.Factory, proc *processor.Processor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:        db,
		cfg:       cfg,
		factory:   factory,
		limiter:   NewRateLimiter(),
		processor: proc,
		logger:    logger.With("component", "scheduler"),
	}
}

// Run polls on a fixed interval until the context is cancelled. The loop
// only exits between ticks; an in-flight poll may finish or be cancelled
// through its own context, which is safe because persistence is
// insert-only and idempotent.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.cfg.PollInterval)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one poll pass over all accounts and then the processor.
// One account's failure never aborts the others or the loop.
func (s *Scheduler) tick(ctx context.Context) {
	accounts, err := s.db.ListPollableAccounts(ctx)
	if err != nil {
		s.logger.Error("failed to load accounts", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, account := range accounts {
		if !s.limiter.CanPoll(account.Email, s.cfg.RateLimitInterval) {
			s.logger.Debug("rate limited", "email", account.Email)
			continue
		}
		s.limiter.RecordPoll(account.Email)

		wg.Add(1)
		go func(acc *models.MailAccount) {
			defer wg.Done()
			s.pollAccount(ctx, acc)
		}(account)
	}
	wg.Wait()

	stats, err := s.processor.Run(ctx, s.cfg.MaxProcessPerRun)
	if err != nil {
		s.logger.Error("processor run failed", "error", err)
		return
	}
	if stats.Processed > 0 {
		s.logger.Info("processed messages",
			"processed", stats.Processed,
			"matched", stats.Matched,
			"proposed", stats.Proposed,
			"ignored", stats.Ignored,
			"errors", stats.Errors,
		)
	}
}

// pollAccount performs one fetch-persist-cursor cycle for one account.
// Status writes run on a context detached from the fetch deadline: an
// expired or cancelled fetch must still leave its failure visible on the
// account record.
func (s *Scheduler) pollAccount(ctx context.Context, account *models.MailAccount) {
	logger := s.logger.With("email", account.Email)

	writeCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	if err := s.db.UpdateSyncStarted(writeCtx, account.ID); err != nil {
		logger.Error("failed to mark account syncing", "error", err)
		return
	}

	client, err := s.factory(ctx, account)
	if err != nil {
		s.recordFailure(writeCtx, account, err)
		return
	}
	defer client.Close()

	var msgs []*models.EmailMessage
	if account.Cursor > 0 {
		msgs, err = client.FetchSince(ctx, account.Cursor, s.cfg.MaxFetchPerPoll)
	} else {
		msgs, err = client.FetchRecent(ctx, s.cfg.MaxFetchPerPoll)
	}
	if err != nil {
		s.recordFailure(writeCtx, account, err)
		return
	}

	stored := 0
	for _, msg := range msgs {
		inserted, err := s.db.InsertMessage(writeCtx, msg)
		if err != nil {
			logger.Error("failed to store message", "provider_message_id", msg.ProviderMessageID, "error", err)
			continue
		}
		if inserted {
			stored++
		}
	}

	// The watermark is captured even when nothing new was fetched; skipping
	// it causes redundant future fetches.
	cursor, err := client.CurrentCursor(ctx)
	if err != nil {
		s.recordFailure(writeCtx, account, err)
		return
	}
	if err := s.db.UpdateSyncSuccess(writeCtx, account.ID, cursor); err != nil {
		logger.Error("failed to record sync success", "error", err)
		return
	}

	logger.Info("account polled", "fetched", len(msgs), "stored", stored, "cursor", cursor)
}

// recordFailure marks the account failed, or auth_required when the error
// looks like a revoked credential so an operator knows to re-consent.
func (s *Scheduler) recordFailure(ctx context.Context, account *models.MailAccount, pollErr error) {
	status := models.SyncFailed
	if email.IsAuthError(pollErr) {
		status = models.SyncAuthRequired
	}
	s.logger.Error("account poll failed", "email", account.Email, "status", status, "error", pollErr)

	if err := s.db.UpdateSyncFailed(ctx, account.ID, status, pollErr.Error()); err != nil {
		s.logger.Error("failed to record sync failure", "email", account.Email, "error", err)
	}
}
