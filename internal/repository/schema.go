package repository

// Schema is applied at startup; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                 TEXT PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	plan_label         TEXT NOT NULL DEFAULT '',
	login              TEXT NOT NULL,
	password           TEXT NOT NULL,
	server             TEXT NOT NULL,
	balance            DOUBLE PRECISION NOT NULL,
	equity             DOUBLE PRECISION NOT NULL,
	starting_balance   DOUBLE PRECISION NOT NULL,
	last_day_balance   DOUBLE PRECISION NOT NULL,
	last_daily_reset   TIMESTAMPTZ NOT NULL,
	daily_loss_limit   DOUBLE PRECISION NOT NULL,
	max_loss_limit     DOUBLE PRECISION NOT NULL,
	profit_target      DOUBLE PRECISION NOT NULL,
	current_daily_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_max_loss   DOUBLE PRECISION NOT NULL DEFAULT 0,
	status             TEXT NOT NULL,
	payout_eligible    BOOLEAN NOT NULL DEFAULT FALSE,
	payout_requested   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS accounts_owner_id_idx ON accounts (owner_id);

CREATE TABLE IF NOT EXISTS trades (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL REFERENCES accounts (id),
	symbol        TEXT NOT NULL,
	side          TEXT NOT NULL,
	entry_price   DOUBLE PRECISION NOT NULL,
	exit_price    DOUBLE PRECISION,
	margin_amount DOUBLE PRECISION NOT NULL,
	leverage      DOUBLE PRECISION NOT NULL,
	stop_loss     DOUBLE PRECISION,
	take_profit   DOUBLE PRECISION,
	status        TEXT NOT NULL,
	pnl           DOUBLE PRECISION,
	opened_at     TIMESTAMPTZ NOT NULL,
	closed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS trades_account_id_idx ON trades (account_id);

CREATE TABLE IF NOT EXISTS journal_entries (
	owner_id   TEXT NOT NULL,
	day        TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	mood       TEXT NOT NULL DEFAULT '',
	total_pnl  DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (owner_id, day)
);
`
