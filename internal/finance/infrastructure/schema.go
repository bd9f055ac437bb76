package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	login       TEXT NOT NULL UNIQUE,
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	id                UUID PRIMARY KEY,
	user_id           TEXT NOT NULL,
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	currency          CHAR(3) NOT NULL,
	balance           NUMERIC NOT NULL DEFAULT 0,
	external_id       TEXT,
	external_provider TEXT NOT NULL DEFAULT 'manual',
	institution_name  TEXT NOT NULL DEFAULT '',
	last_synced_at    TIMESTAMPTZ,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS accounts_user_idx ON accounts (user_id);

CREATE TABLE IF NOT EXISTS categories (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	icon       TEXT NOT NULL DEFAULT '',
	color      TEXT NOT NULL DEFAULT '',
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS categories_user_name_idx ON categories (user_id, name);

CREATE TABLE IF NOT EXISTS transactions (
	id                  UUID PRIMARY KEY,
	user_id             TEXT NOT NULL,
	account_id          UUID NOT NULL REFERENCES accounts (id),
	category_id         UUID REFERENCES categories (id) ON DELETE SET NULL,
	type                TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	amount              NUMERIC NOT NULL CHECK (amount >= 0),
	currency            CHAR(3) NOT NULL,
	date                TIMESTAMPTZ NOT NULL,
	description         TEXT NOT NULL,
	merchant_name       TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	tags                TEXT[] NOT NULL DEFAULT '{}',
	import_hash         TEXT,
	category_confidence DOUBLE PRECISION,
	external_id         TEXT,
	is_recurring        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS transactions_user_import_hash_idx ON transactions (user_id, import_hash) WHERE import_hash IS NOT NULL;
CREATE INDEX IF NOT EXISTS transactions_user_date_idx ON transactions (user_id, date);
CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id);
CREATE INDEX IF NOT EXISTS transactions_user_external_idx ON transactions (user_id, external_id) WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS budgets (
	id              UUID PRIMARY KEY,
	user_id         TEXT NOT NULL,
	category_id     UUID NOT NULL REFERENCES categories (id),
	amount          NUMERIC NOT NULL CHECK (amount > 0),
	period          TEXT NOT NULL,
	start_date      TIMESTAMPTZ NOT NULL,
	end_date        TIMESTAMPTZ,
	alert_threshold INTEGER NOT NULL DEFAULT 80,
	alert_sent      BOOLEAN NOT NULL DEFAULT FALSE,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS budgets_user_idx ON budgets (user_id);

CREATE TABLE IF NOT EXISTS recurring_transactions (
	id                    UUID PRIMARY KEY,
	user_id               TEXT NOT NULL,
	account_id            UUID NOT NULL REFERENCES accounts (id),
	category_id           UUID REFERENCES categories (id) ON DELETE SET NULL,
	type                  TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	amount                NUMERIC NOT NULL CHECK (amount > 0),
	currency              CHAR(3) NOT NULL,
	description           TEXT NOT NULL,
	merchant_name         TEXT NOT NULL DEFAULT '',
	notes                 TEXT NOT NULL DEFAULT '',
	tags                  TEXT[] NOT NULL DEFAULT '{}',
	frequency             TEXT NOT NULL,
	schedule_interval     INTEGER NOT NULL DEFAULT 1,
	day_of_month          INTEGER,
	day_of_week           INTEGER,
	start_date            TIMESTAMPTZ NOT NULL,
	end_date              TIMESTAMPTZ,
	end_after_occurrences INTEGER,
	next_execution_date   TIMESTAMPTZ NOT NULL,
	last_execution_date   TIMESTAMPTZ,
	occurrence_count      INTEGER NOT NULL DEFAULT 0,
	is_active             BOOLEAN NOT NULL DEFAULT TRUE,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recurring_due_idx ON recurring_transactions (next_execution_date) WHERE is_active;
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
