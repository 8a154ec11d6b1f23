package expiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vendorhub/internal/domain"
	"vendorhub/pkg/platform/sentinel"
	txcontext "vendorhub/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL class 23 code for a unique constraint hit.
const uniqueViolation = "23505"

// bucketUrgencySQL orders alert_type most-urgent first in SQL, mirroring
// Bucket.Urgency.
const bucketUrgencySQL = `
	CASE a.alert_type
		WHEN 'expired' THEN 0
		WHEN '1_day' THEN 1
		WHEN '7_days' THEN 2
		WHEN '30_days' THEN 3
		WHEN '60_days' THEN 4
		WHEN '90_days' THEN 5
		ELSE 6
	END`

// PostgresAlertStore persists expiry alerts. The unique constraint on
// (document_id, alert_type) backs the at-most-one-per-bucket contract;
// conflicting inserts surface as sentinel.ErrAlreadyExists.
type PostgresAlertStore struct {
	db *sql.DB
}

func NewPostgresAlertStore(db *sql.DB) *PostgresAlertStore {
	return &PostgresAlertStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresAlertStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresAlertStore) Insert(ctx context.Context, alert Alert) error {
	query := `
		INSERT INTO expiry_alerts (id, document_id, supplier_id, alert_type, expiry_date, email_sent, acknowledged, reminder_count, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, 0, $6)
		ON CONFLICT (document_id, alert_type) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		alert.ID,
		alert.DocumentID,
		alert.SupplierID,
		string(alert.Bucket),
		alert.ExpiryDate,
		alert.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert expiry alert: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert expiry alert rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrAlreadyExists
	}
	return nil
}

func (s *PostgresAlertStore) Pending(ctx context.Context, today time.Time, limit int) ([]PendingAlert, error) {
	query := `
		SELECT a.id, a.document_id, a.supplier_id, s.company_name, s.email, d.document_type, a.expiry_date, a.alert_type,
			(a.expiry_date - $1::date) AS days_until_expiry
		FROM expiry_alerts a
		JOIN suppliers s ON s.id = a.supplier_id
		JOIN documents d ON d.id = a.document_id
		WHERE a.email_sent = FALSE
		  AND s.status IN ('APPROVED', 'UNDER_REVIEW')
		ORDER BY a.expiry_date ASC, ` + bucketUrgencySQL + ` ASC
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, today, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending alerts: %w", err)
	}
	defer rows.Close()

	var out []PendingAlert
	for rows.Next() {
		var p PendingAlert
		var bucket, docType string
		if err := rows.Scan(&p.AlertID, &p.DocumentID, &p.SupplierID, &p.CompanyName, &p.Email, &docType, &p.ExpiryDate, &bucket, &p.DaysUntilExpiry); err != nil {
			return nil, fmt.Errorf("scan pending alert: %w", err)
		}
		p.Bucket = Bucket(bucket)
		p.DocumentType = domain.DocumentType(docType)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresAlertStore) MarkSent(ctx context.Context, alertID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE expiry_alerts
		SET email_sent = TRUE,
		    email_sent_at = $2,
		    reminder_count = reminder_count + 1,
		    last_reminder_at = $2
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, alertID, at)
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark alert sent rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresAlertStore) Acknowledge(ctx context.Context, alertID, supplierID uuid.UUID, at time.Time) (bool, error) {
	// The supplier_id predicate is the ownership check: a mismatch updates
	// zero rows and reads the same as a missing alert.
	query := `
		UPDATE expiry_alerts
		SET acknowledged = TRUE,
		    acknowledged_at = $3,
		    acknowledged_by = $2
		WHERE id = $1 AND supplier_id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, alertID, supplierID, at)
	if err != nil {
		return false, fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acknowledge alert rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresAlertStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Alert, error) {
	query := `
		SELECT id, document_id, supplier_id, alert_type, expiry_date, email_sent, email_sent_at,
			acknowledged, acknowledged_at, acknowledged_by, reminder_count, last_reminder_at, created_at
		FROM expiry_alerts
		WHERE document_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list alerts by document: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func (s *PostgresAlertStore) Stats(ctx context.Context, today time.Time) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE email_sent = FALSE),
			COUNT(*) FILTER (WHERE email_sent = TRUE),
			COUNT(*) FILTER (WHERE acknowledged = TRUE),
			COUNT(*) FILTER (WHERE expiry_date < $1::date),
			COUNT(*) FILTER (WHERE expiry_date >= $1::date AND expiry_date - $1::date <= 7),
			COUNT(*) FILTER (WHERE expiry_date - $1::date > 7 AND expiry_date - $1::date <= 30)
		FROM expiry_alerts
	`
	var stats Stats
	err := s.execer(ctx).QueryRowContext(ctx, query, today).Scan(
		&stats.TotalAlerts,
		&stats.PendingAlerts,
		&stats.SentAlerts,
		&stats.AcknowledgedAlerts,
		&stats.ExpiredDocuments,
		&stats.CriticalAlerts,
		&stats.WarningAlerts,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate alert stats: %w", err)
	}
	return stats, nil
}

type alertRow interface {
	Scan(dest ...any) error
}

func scanAlert(row alertRow) (Alert, error) {
	var a Alert
	var bucket string
	var sentAt, ackAt, lastReminder sql.NullTime
	var ackBy uuid.NullUUID
	err := row.Scan(
		&a.ID, &a.DocumentID, &a.SupplierID, &bucket, &a.ExpiryDate,
		&a.EmailSent, &sentAt,
		&a.Acknowledged, &ackAt, &ackBy,
		&a.ReminderCount, &lastReminder, &a.CreatedAt,
	)
	if err != nil {
		return Alert{}, fmt.Errorf("scan alert: %w", err)
	}
	a.Bucket = Bucket(bucket)
	if sentAt.Valid {
		a.EmailSentAt = &sentAt.Time
	}
	if ackAt.Valid {
		a.AcknowledgedAt = &ackAt.Time
	}
	if ackBy.Valid {
		id := ackBy.UUID
		a.AcknowledgedBy = &id
	}
	if lastReminder.Valid {
		a.LastReminderAt = &lastReminder.Time
	}
	return a, nil
}
