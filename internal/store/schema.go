// Package store provides the SQLite persistence layer for accounts and legs.
package store

import "context"

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Accounts: the chart of accounts. Rows are never deleted.
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL CHECK (type IN ('equity', 'asset', 'liability', 'income', 'expense')),
    name TEXT NOT NULL UNIQUE,
    opened_on TEXT NOT NULL,           -- YYYY-MM-DD
    closed_on TEXT                     -- YYYY-MM-DD, NULL while open
);

-- Transaction headers: allocates ledger-wide xids, never reused
CREATE TABLE IF NOT EXISTS transactions (
    xid INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Legs: two mirrored rows per transaction
CREATE TABLE IF NOT EXISTS legs (
    xid INTEGER NOT NULL REFERENCES transactions(xid),
    date TEXT NOT NULL,                -- YYYY-MM-DD
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    counter_account_id INTEGER NOT NULL REFERENCES accounts(id),
    debit INTEGER NOT NULL CHECK (debit >= 0),
    credit INTEGER NOT NULL CHECK (credit >= 0),
    balance_after INTEGER NOT NULL,    -- running balance of account_id
    comment TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (account_id, xid),
    CHECK ((debit = 0) <> (credit = 0)),
    CHECK (account_id <> counter_account_id)
);

CREATE INDEX IF NOT EXISTS idx_legs_xid
    ON legs(xid);

CREATE INDEX IF NOT EXISTS idx_legs_account_date
    ON legs(account_id, date);

-- Key-value metadata (key hash)
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(ctx context.Context, s *Store) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return err
	}
	return nil
}
