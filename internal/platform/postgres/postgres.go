// Package postgres owns database connectivity and the bootstrap schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL with pool settings tuned for this service.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables this service relies on. The unique index
// on (document_id, alert_type) is the correctness contract for expiry
// alerting: concurrent inserts race and exactly one wins.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across server/sweeper startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(7203101101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS suppliers (
	id UUID PRIMARY KEY,
	company_name TEXT NOT NULL,
	email TEXT NOT NULL,
	category TEXT NOT NULL,
	status TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	reviewed_by UUID,
	submitted_at TIMESTAMPTZ,
	reviewed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_suppliers_email
	ON suppliers(lower(email));

CREATE TABLE IF NOT EXISTS profile_changes (
	id UUID PRIMARY KEY,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	requested JSONB NOT NULL,
	previous JSONB NOT NULL,
	status TEXT NOT NULL,
	reviewed_by UUID,
	review_notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	reviewed_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_profile_changes_pending
	ON profile_changes(supplier_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	document_type TEXT NOT NULL,
	verification_status TEXT NOT NULL,
	expiry_date DATE,
	storage_key TEXT NOT NULL,
	verified_by UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_supplier_type
	ON documents(supplier_id, document_type);
CREATE INDEX IF NOT EXISTS idx_documents_expiry
	ON documents(expiry_date) WHERE expiry_date IS NOT NULL;

CREATE TABLE IF NOT EXISTS expiry_alerts (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	alert_type TEXT NOT NULL,
	expiry_date DATE NOT NULL,
	email_sent BOOLEAN NOT NULL DEFAULT FALSE,
	email_sent_at TIMESTAMPTZ,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged_at TIMESTAMPTZ,
	acknowledged_by UUID,
	reminder_count INT NOT NULL DEFAULT 0,
	last_reminder_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT expiry_alerts_document_bucket_key UNIQUE (document_id, alert_type)
);

CREATE INDEX IF NOT EXISTS idx_expiry_alerts_pending
	ON expiry_alerts(email_sent) WHERE email_sent = FALSE;

CREATE TABLE IF NOT EXISTS supplier_status_history (
	id UUID PRIMARY KEY,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	old_status TEXT,
	new_status TEXT NOT NULL,
	actor_type TEXT NOT NULL,
	actor_id UUID,
	actor_name TEXT NOT NULL,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_supplier_history_supplier
	ON supplier_status_history(supplier_id, created_at DESC);

CREATE TABLE IF NOT EXISTS document_status_history (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	old_status TEXT,
	new_status TEXT NOT NULL,
	actor_type TEXT NOT NULL,
	actor_id UUID,
	actor_name TEXT NOT NULL,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_history_document
	ON document_status_history(document_id, created_at DESC);

CREATE TABLE IF NOT EXISTS activity_log (
	id UUID PRIMARY KEY,
	supplier_id UUID NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
	activity_type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	actor_type TEXT NOT NULL,
	actor_id UUID,
	actor_name TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_supplier
	ON activity_log(supplier_id, created_at DESC);

CREATE TABLE IF NOT EXISTS activity_outbox (
	id UUID PRIMARY KEY,
	supplier_id UUID NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_activity_outbox_unpublished
	ON activity_outbox(created_at) WHERE published_at IS NULL;
`
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
