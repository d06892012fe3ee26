package database

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    host TEXT NOT NULL,
    port INTEGER NOT NULL DEFAULT 0,
    username TEXT NOT NULL,
    password TEXT NOT NULL,
    security TEXT NOT NULL DEFAULT 'ssl' CHECK (security IN ('none', 'starttls', 'ssl')),
    mailbox_name TEXT NOT NULL DEFAULT 'INBOX',
    protocol TEXT NOT NULL DEFAULT 'imap' CHECK (protocol IN ('imap', 'pop3')),
    enabled BOOLEAN NOT NULL DEFAULT true,
    last_processed_date DATETIME,
    processed_message_ids TEXT NOT NULL DEFAULT '',
    last_uid INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS webhooks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_formats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    template TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    position INTEGER NOT NULL DEFAULT 0,
    enabled BOOLEAN NOT NULL DEFAULT true,
    account_id INTEGER REFERENCES accounts(id) ON DELETE CASCADE,
    webhook_id INTEGER REFERENCES webhooks(id) ON DELETE SET NULL,
    format_id INTEGER REFERENCES notification_formats(id) ON DELETE SET NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rule_conditions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    rule_id INTEGER NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
    field TEXT NOT NULL CHECK (field IN ('from', 'to', 'subject')),
    match_type TEXT NOT NULL DEFAULT 'contains' CHECK (match_type IN ('prefix', 'suffix', 'contains', 'regex')),
    pattern TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS failure_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
    rule_id INTEGER REFERENCES rules(id) ON DELETE SET NULL,
    message_id TEXT,
    from_address TEXT,
    subject TEXT,
    error_message TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS worker_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    is_running BOOLEAN NOT NULL DEFAULT true,
    poll_interval INTEGER NOT NULL DEFAULT 60 CHECK (poll_interval >= 10),
    display_timezone TEXT NOT NULL DEFAULT 'UTC',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS worker_triggers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    requested_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_enabled ON accounts(enabled);
CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position, id);
CREATE INDEX IF NOT EXISTS idx_conditions_rule ON rule_conditions(rule_id);
CREATE INDEX IF NOT EXISTS idx_failures_created ON failure_logs(created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    host TEXT NOT NULL,
    port INTEGER NOT NULL DEFAULT 0,
    username TEXT NOT NULL,
    password TEXT NOT NULL,
    security TEXT NOT NULL DEFAULT 'ssl' CHECK (security IN ('none', 'starttls', 'ssl')),
    mailbox_name TEXT NOT NULL DEFAULT 'INBOX',
    protocol TEXT NOT NULL DEFAULT 'imap' CHECK (protocol IN ('imap', 'pop3')),
    enabled BOOLEAN NOT NULL DEFAULT true,
    last_processed_date TIMESTAMPTZ,
    processed_message_ids TEXT NOT NULL DEFAULT '',
    last_uid BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT now(),
    updated_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS webhooks (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_formats (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    template TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rules (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    position INTEGER NOT NULL DEFAULT 0,
    enabled BOOLEAN NOT NULL DEFAULT true,
    account_id BIGINT REFERENCES accounts(id) ON DELETE CASCADE,
    webhook_id BIGINT REFERENCES webhooks(id) ON DELETE SET NULL,
    format_id BIGINT REFERENCES notification_formats(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ DEFAULT now(),
    updated_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rule_conditions (
    id BIGSERIAL PRIMARY KEY,
    rule_id BIGINT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
    field TEXT NOT NULL CHECK (field IN ('from', 'to', 'subject')),
    match_type TEXT NOT NULL DEFAULT 'contains' CHECK (match_type IN ('prefix', 'suffix', 'contains', 'regex')),
    pattern TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS failure_logs (
    id BIGSERIAL PRIMARY KEY,
    account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
    rule_id BIGINT REFERENCES rules(id) ON DELETE SET NULL,
    message_id TEXT,
    from_address TEXT,
    subject TEXT,
    error_message TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS worker_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    is_running BOOLEAN NOT NULL DEFAULT true,
    poll_interval INTEGER NOT NULL DEFAULT 60 CHECK (poll_interval >= 10),
    display_timezone TEXT NOT NULL DEFAULT 'UTC',
    updated_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS worker_triggers (
    id BIGSERIAL PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    requested_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_enabled ON accounts(enabled);
CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position, id);
CREATE INDEX IF NOT EXISTS idx_conditions_rule ON rule_conditions(rule_id);
CREATE INDEX IF NOT EXISTS idx_failures_created ON failure_logs(created_at);
`
