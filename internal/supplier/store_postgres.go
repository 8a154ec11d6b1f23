package supplier

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vendorhub/internal/domain"
	"vendorhub/pkg/platform/sentinel"
	txcontext "vendorhub/pkg/platform/tx"
)

const uniqueViolation = "23505"

const supplierColumns = `id, company_name, email, category, status, active, reviewed_by, submitted_at, reviewed_at, created_at, updated_at`

// PostgresStore persists suppliers in PostgreSQL.
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

func (s *PostgresStore) Create(ctx context.Context, sup domain.Supplier) error {
	query := `
		INSERT INTO suppliers (` + supplierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		sup.ID, sup.CompanyName, sup.Email, string(sup.Category), string(sup.Status),
		sup.Active, sup.ReviewedBy, sup.SubmittedAt, sup.ReviewedAt, sup.CreatedAt, sup.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE lower(email) = lower($1)`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) Update(ctx context.Context, sup domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET company_name = $2, email = $3, category = $4, status = $5, active = $6,
		    reviewed_by = $7, submitted_at = $8, reviewed_at = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		sup.ID, sup.CompanyName, sup.Email, string(sup.Category), string(sup.Status),
		sup.Active, sup.ReviewedBy, sup.SubmittedAt, sup.ReviewedAt, sup.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update supplier rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, status domain.SupplierStatus, limit int) ([]domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

func (s *PostgresStore) RejectedBefore(ctx context.Context, cutoff time.Time) ([]domain.Supplier, error) {
	query := `
		SELECT ` + supplierColumns + `
		FROM suppliers
		WHERE status = 'REJECTED' AND reviewed_at IS NOT NULL AND reviewed_at < $1
		ORDER BY reviewed_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list purge candidates: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete supplier rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (domain.Supplier, error) {
	var sup domain.Supplier
	var category, status string
	var reviewedBy uuid.NullUUID
	var submittedAt, reviewedAt sql.NullTime
	err := row.Scan(&sup.ID, &sup.CompanyName, &sup.Email, &category, &status,
		&sup.Active, &reviewedBy, &submittedAt, &reviewedAt, &sup.CreatedAt, &sup.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Supplier{}, sentinel.ErrNotFound
		}
		return domain.Supplier{}, fmt.Errorf("scan supplier: %w", err)
	}
	sup.Category = domain.BusinessCategory(category)
	sup.Status = domain.SupplierStatus(status)
	if reviewedBy.Valid {
		id := reviewedBy.UUID
		sup.ReviewedBy = &id
	}
	if submittedAt.Valid {
		sup.SubmittedAt = &submittedAt.Time
	}
	if reviewedAt.Valid {
		sup.ReviewedAt = &reviewedAt.Time
	}
	return sup, nil
}

func (s *PostgresStore) scanAll(rows *sql.Rows) ([]domain.Supplier, error) {
	var out []domain.Supplier
	for rows.Next() {
		var sup domain.Supplier
		var category, status string
		var reviewedBy uuid.NullUUID
		var submittedAt, reviewedAt sql.NullTime
		if err := rows.Scan(&sup.ID, &sup.CompanyName, &sup.Email, &category, &status,
			&sup.Active, &reviewedBy, &submittedAt, &reviewedAt, &sup.CreatedAt, &sup.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		sup.Category = domain.BusinessCategory(category)
		sup.Status = domain.SupplierStatus(status)
		if reviewedBy.Valid {
			id := reviewedBy.UUID
			sup.ReviewedBy = &id
		}
		if submittedAt.Valid {
			sup.SubmittedAt = &submittedAt.Time
		}
		if reviewedAt.Valid {
			sup.ReviewedAt = &reviewedAt.Time
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

const profileChangeColumns = `id, supplier_id, requested, previous, status, reviewed_by, review_notes, created_at, reviewed_at`

func (s *PostgresStore) CreateProfileChange(ctx context.Context, c domain.ProfileChange) error {
	requested, err := json.Marshal(c.Requested)
	if err != nil {
		return fmt.Errorf("encode requested changes: %w", err)
	}
	previous, err := json.Marshal(c.Previous)
	if err != nil {
		return fmt.Errorf("encode previous values: %w", err)
	}

	query := `
		INSERT INTO profile_changes (` + profileChangeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		c.ID, c.SupplierID, requested, previous, string(c.Status),
		c.ReviewedBy, c.ReviewNotes, c.CreatedAt, c.ReviewedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert profile change: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfileChange(ctx context.Context, id uuid.UUID) (domain.ProfileChange, error) {
	query := `SELECT ` + profileChangeColumns + ` FROM profile_changes WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, id)
	c, err := scanProfileChange(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProfileChange{}, sentinel.ErrNotFound
		}
		return domain.ProfileChange{}, fmt.Errorf("scan profile change: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateProfileChange(ctx context.Context, c domain.ProfileChange) error {
	query := `
		UPDATE profile_changes
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		c.ID, string(c.Status), c.ReviewedBy, c.ReviewNotes, c.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile change: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile change rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProfileChanges(ctx context.Context, status domain.ProfileChangeStatus, limit int) ([]domain.ProfileChange, error) {
	query := `SELECT ` + profileChangeColumns + ` FROM profile_changes`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profile changes: %w", err)
	}
	defer rows.Close()
	return scanProfileChanges(rows)
}

func (s *PostgresStore) ListSupplierProfileChanges(ctx context.Context, supplierID uuid.UUID, limit int) ([]domain.ProfileChange, error) {
	query := `
		SELECT ` + profileChangeColumns + `
		FROM profile_changes
		WHERE supplier_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, supplierID, limit)
	if err != nil {
		return nil, fmt.Errorf("list supplier profile changes: %w", err)
	}
	defer rows.Close()
	return scanProfileChanges(rows)
}

func scanProfileChanges(rows *sql.Rows) ([]domain.ProfileChange, error) {
	var out []domain.ProfileChange
	for rows.Next() {
		c, err := scanProfileChange(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan profile change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanProfileChange(scan func(dest ...any) error) (domain.ProfileChange, error) {
	var c domain.ProfileChange
	var requested, previous []byte
	var status string
	var reviewedBy uuid.NullUUID
	var reviewedAt sql.NullTime
	if err := scan(&c.ID, &c.SupplierID, &requested, &previous, &status,
		&reviewedBy, &c.ReviewNotes, &c.CreatedAt, &reviewedAt); err != nil {
		return domain.ProfileChange{}, err
	}
	if err := json.Unmarshal(requested, &c.Requested); err != nil {
		return domain.ProfileChange{}, fmt.Errorf("decode requested changes: %w", err)
	}
	if err := json.Unmarshal(previous, &c.Previous); err != nil {
		return domain.ProfileChange{}, fmt.Errorf("decode previous values: %w", err)
	}
	c.Status = domain.ProfileChangeStatus(status)
	if reviewedBy.Valid {
		id := reviewedBy.UUID
		c.ReviewedBy = &id
	}
	if reviewedAt.Valid {
		c.ReviewedAt = &reviewedAt.Time
	}
	return c, nil
}
