package archive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mixelka/mailsync/internal/database"
	"github.com/mixelka/mailsync/internal/email"
	"github.com/mixelka/mailsync/pkg/models"
)

// Descriptor is one durable archive request dropped into the queue
// directory by an external producer.
type Descriptor struct {
	MessageID string `json:"message_id"`
	Mailbox   string `json:"mailbox"`
}

// Queue drains a directory of archive descriptors into remote archive
// calls, one batched call per account. Filesystem watch events are a
// latency hint only: the periodic directory scan is authoritative, so a
// missed event costs latency, never correctness.
type Queue struct {
	dir          string
	scanInterval time.Duration
	db           *database.DB
	factory      email.Factory
	logger       *slog.Logger
}

// New creates a new archive queue
func New(dir string, scanInterval time.Duration, db *database.DB, factory email.Factory, logger *slog.Logger) *Queue {
	return &Queue{
		dir:          dir,
		scanInterval: scanInterval,
		db:           db,
		factory:      factory,
		logger:       logger.With("component", "archive_queue"),
	}
}

// Run watches and periodically scans the queue directory until the
// context is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return err
	}

	var events chan fsnotify.Event
	var watchErrs chan error

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Scan-only mode still satisfies correctness.
		q.logger.Warn("filesystem watcher unavailable, relying on periodic scan", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(q.dir); err != nil {
			q.logger.Warn("failed to watch queue directory", "dir", q.dir, "error", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(q.scanInterval)
	defer ticker.Stop()

	q.logger.Info("archive queue started", "dir", q.dir, "scan_interval", q.scanInterval)
	q.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("archive queue stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				q.Sweep(ctx)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			q.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			q.Sweep(ctx)
		}
	}
}

type pendingFile struct {
	path string
	desc Descriptor
}

// Sweep scans the queue directory and processes everything pending.
// Descriptors are grouped by mailbox so each account costs one remote
// call; files are deleted only after their account's call succeeded, so
// failures retry on the next sweep.
func (q *Queue) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		q.logger.Error("failed to scan queue directory", "dir", q.dir, "error", err)
		return
	}

	byMailbox := make(map[string][]pendingFile)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(q.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			q.logger.Warn("failed to read descriptor", "path", path, "error", err)
			continue
		}
		var desc Descriptor
		if err := json.Unmarshal(data, &desc); err != nil || desc.MessageID == "" || desc.Mailbox == "" {
			q.logger.Warn("malformed descriptor, skipping", "path", path, "error", err)
			continue
		}
		byMailbox[desc.Mailbox] = append(byMailbox[desc.Mailbox], pendingFile{path: path, desc: desc})
	}

	for mailbox, files := range byMailbox {
		q.archiveForAccount(ctx, mailbox, files)
	}
}

// archiveForAccount issues one batched archive call for one account's
// pending descriptors.
func (q *Queue) archiveForAccount(ctx context.Context, mailbox string, files []pendingFile) {
	logger := q.logger.With("email", mailbox)

	account, err := q.db.GetAccountByEmail(ctx, mailbox)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logger.Warn("descriptor references unknown account, leaving for operator")
		} else {
			logger.Error("failed to load account", "error", err)
		}
		return
	}
	if account.SyncStatus == models.SyncAuthRequired {
		// Parked until re-consent; descriptors stay put.
		logger.Debug("account awaiting re-consent, skipping")
		return
	}

	client, err := q.factory(ctx, account)
	if err != nil {
		q.recordFailure(ctx, account, err)
		return
	}
	defer client.Close()

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.desc.MessageID)
	}

	if err := client.Archive(ctx, ids); err != nil {
		q.recordFailure(ctx, account, err)
		return
	}

	for _, f := range files {
		if err := q.db.MarkArchived(ctx, account.ID, f.desc.MessageID); err != nil {
			logger.Warn("failed to flag message archived", "provider_message_id", f.desc.MessageID, "error", err)
		}
		if err := os.Remove(f.path); err != nil {
			logger.Warn("failed to remove descriptor", "path", f.path, "error", err)
		}
	}
	logger.Info("archived messages", "count", len(ids))
}

// recordFailure escalates auth-looking errors to auth_required so an
// operator knows re-consent is needed instead of retrying blindly.
func (q *Queue) recordFailure(ctx context.Context, account *models.MailAccount, archiveErr error) {
	q.logger.Error("archive call failed", "email", account.Email, "error", archiveErr)
	if email.IsAuthError(archiveErr) {
		if err := q.db.UpdateSyncFailed(ctx, account.ID, models.SyncAuthRequired, archiveErr.Error()); err != nil {
			q.logger.Error("failed to record auth failure", "email", account.Email, "error", err)
		}
	}
}
