package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vendorhub/internal/domain"
	"vendorhub/internal/expiry"
	"vendorhub/pkg/platform/sentinel"
	txcontext "vendorhub/pkg/platform/tx"
)

const uniqueViolation = "23505"

const documentColumns = `id, supplier_id, document_type, verification_status, expiry_date, storage_key, verified_by, created_at, updated_at`

// PostgresStore persists documents. It also feeds the expiry scheduler:
// ExpiringCandidates and SupplierExpiring satisfy expiry.DocumentReader.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, doc domain.Document) error {
	query := `
		INSERT INTO documents (id, supplier_id, document_type, verification_status, expiry_date, storage_key, verified_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		doc.ID,
		doc.SupplierID,
		string(doc.Type),
		string(doc.Status),
		doc.ExpiryDate,
		doc.StorageKey,
		doc.VerifiedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetByType(ctx context.Context, supplierID uuid.UUID, docType domain.DocumentType) (domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE supplier_id = $1 AND document_type = $2`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, supplierID, string(docType)))
}

func (s *PostgresStore) Update(ctx context.Context, doc domain.Document) error {
	query := `
		UPDATE documents
		SET verification_status = $2,
		    expiry_date = $3,
		    storage_key = $4,
		    verified_by = $5,
		    updated_at = $6
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		doc.ID,
		string(doc.Status),
		doc.ExpiryDate,
		doc.StorageKey,
		doc.VerifiedBy,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE supplier_id = $1 ORDER BY created_at ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// ExpiringCandidates returns every VERIFIED document with an expiry date
// whose supplier is still active in the pipeline. This is the sweep's input.
func (s *PostgresStore) ExpiringCandidates(ctx context.Context) ([]expiry.CandidateDocument, error) {
	query := `
		SELECT d.id, d.supplier_id, d.document_type, d.expiry_date, s.status
		FROM documents d
		JOIN suppliers s ON s.id = d.supplier_id
		WHERE d.verification_status = 'VERIFIED'
		  AND d.expiry_date IS NOT NULL
		  AND s.status IN ('APPROVED', 'UNDER_REVIEW')
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list expiring candidates: %w", err)
	}
	defer rows.Close()

	var out []expiry.CandidateDocument
	for rows.Next() {
		var c expiry.CandidateDocument
		var docType, status string
		if err := rows.Scan(&c.DocumentID, &c.SupplierID, &docType, &c.ExpiryDate, &status); err != nil {
			return nil, fmt.Errorf("scan expiring candidate: %w", err)
		}
		c.DocumentType = domain.DocumentType(docType)
		c.SupplierStatus = domain.SupplierStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SupplierExpiring returns one supplier's expiring VERIFIED documents with
// their alert annotations, soonest expiry first.
func (s *PostgresStore) SupplierExpiring(ctx context.Context, supplierID uuid.UUID, today time.Time, withinDays int) ([]expiry.SupplierExpiringDocument, error) {
	query := `
		SELECT d.id, d.document_type, d.expiry_date,
			(d.expiry_date - $2::date) AS days_until_expiry,
			COUNT(a.id) AS alert_count,
			MAX(a.created_at) AS last_alert_at,
			BOOL_OR(COALESCE(a.acknowledged, FALSE)) AS acknowledged
		FROM documents d
		LEFT JOIN expiry_alerts a ON a.document_id = d.id
		WHERE d.supplier_id = $1
		  AND d.verification_status = 'VERIFIED'
		  AND d.expiry_date IS NOT NULL
		  AND d.expiry_date <= $2::date + $3::int
		GROUP BY d.id, d.document_type, d.expiry_date
		ORDER BY d.expiry_date ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, supplierID, today, withinDays)
	if err != nil {
		return nil, fmt.Errorf("list supplier expiring documents: %w", err)
	}
	defer rows.Close()

	var out []expiry.SupplierExpiringDocument
	for rows.Next() {
		var e expiry.SupplierExpiringDocument
		var docType string
		var lastAlert sql.NullTime
		if err := rows.Scan(&e.DocumentID, &docType, &e.ExpiryDate, &e.DaysUntilExpiry, &e.AlertCount, &lastAlert, &e.Acknowledged); err != nil {
			return nil, fmt.Errorf("scan supplier expiring document: %w", err)
		}
		e.DocumentType = domain.DocumentType(docType)
		if lastAlert.Valid {
			t := lastAlert.Time
			e.LastAlertAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) scanOne(row *sql.Row) (domain.Document, error) {
	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, sentinel.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) scanAll(rows *sql.Rows) ([]domain.Document, error) {
	var out []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(scan func(...any) error) (domain.Document, error) {
	var doc domain.Document
	var docType, status string
	var expiryDate sql.NullTime
	var verifiedBy uuid.NullUUID
	err := scan(
		&doc.ID,
		&doc.SupplierID,
		&docType,
		&status,
		&expiryDate,
		&doc.StorageKey,
		&verifiedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.VerificationStatus(status)
	if expiryDate.Valid {
		t := expiryDate.Time
		doc.ExpiryDate = &t
	}
	if verifiedBy.Valid {
		id := verifiedBy.UUID
		doc.VerifiedBy = &id
	}
	return doc, nil
}
