package models

import "time"

// EmailMessage is the canonical local record of a remote message.
// (account_id, provider_message_id) is unique; once stored, content fields
// are immutable and only the processed/archived flags change.
type EmailMessage struct {
	ID                int64      `db:"id"`
	AccountID         int64      `db:"account_id"`
	ProviderMessageID string     `db:"provider_message_id"` // Gmail message id or IMAP UID as decimal string
	ThreadID          string     `db:"thread_id"`
	HistoryID         uint64     `db:"history_id"`
	Subject           string     `db:"subject"`
	FromAddr          string     `db:"from_addr"`
	FromName          string     `db:"from_name"`
	ToAddrs           string     `db:"to_addrs"` // JSON array
	CcAddrs           string     `db:"cc_addrs"` // JSON array
	Snippet           string     `db:"snippet"`
	BodyText          string     `db:"body_text"`
	BodyHTML          string     `db:"body_html"`
	Labels            string     `db:"labels"` // JSON array
	HasAttachments    bool       `db:"has_attachments"`
	ReceivedAt        time.Time  `db:"received_at"`
	FetchedAt         time.Time  `db:"fetched_at"`
	Processed         bool       `db:"processed"`
	ProcessedAt       *time.Time `db:"processed_at"`
	ArchivedInSource  bool       `db:"archived_in_source"`
}

// Sender formats the message sender for display, preferring "Name <addr>".
func (m *EmailMessage) Sender() string {
	if m.FromName != "" {
		return m.FromName + " <" + m.FromAddr + ">"
	}
	return m.FromAddr
}
