package database

const schema = `
CREATE TABLE IF NOT EXISTS mail_accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    provider TEXT NOT NULL,
    imap_server TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    refresh_token TEXT NOT NULL DEFAULT '',
    sync_cursor INTEGER NOT NULL DEFAULT 0,
    last_synced_at DATETIME,
    sync_status TEXT NOT NULL DEFAULT 'pending',
    last_error TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN DEFAULT true,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS email_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES mail_accounts(id) ON DELETE CASCADE,
    provider_message_id TEXT NOT NULL,
    thread_id TEXT NOT NULL DEFAULT '',
    history_id INTEGER NOT NULL DEFAULT 0,
    subject TEXT NOT NULL DEFAULT '',
    from_addr TEXT NOT NULL DEFAULT '',
    from_name TEXT NOT NULL DEFAULT '',
    to_addrs TEXT NOT NULL DEFAULT '[]',
    cc_addrs TEXT NOT NULL DEFAULT '[]',
    snippet TEXT NOT NULL DEFAULT '',
    body_text TEXT NOT NULL DEFAULT '',
    body_html TEXT NOT NULL DEFAULT '',
    labels TEXT NOT NULL DEFAULT '[]',
    has_attachments BOOLEAN DEFAULT false,
    received_at DATETIME NOT NULL,
    fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    processed BOOLEAN DEFAULT false,
    processed_at DATETIME,
    archived_in_source BOOLEAN DEFAULT false,
    UNIQUE(account_id, provider_message_id)
);

CREATE TABLE IF NOT EXISTS task_candidates (
    id TEXT PRIMARY KEY,
    message_id INTEGER NOT NULL REFERENCES email_messages(id) ON DELETE CASCADE,
    account_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_accounts_active ON mail_accounts(is_active);
CREATE INDEX IF NOT EXISTS idx_messages_account ON email_messages(account_id);
CREATE INDEX IF NOT EXISTS idx_messages_unprocessed ON email_messages(processed, fetched_at);
CREATE INDEX IF NOT EXISTS idx_candidates_message ON task_candidates(message_id);
`
