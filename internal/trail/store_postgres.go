package trail

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	txcontext "vendorhub/pkg/platform/tx"
)

// PostgresStore persists history, activity and outbox rows in PostgreSQL.
// Writes route through a transaction carried in ctx when one is present, so
// trail rows commit atomically with the entity mutation they describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) AppendSupplier(ctx context.Context, entry SupplierStatusHistory) error {
	query := `
		INSERT INTO supplier_status_history (id, supplier_id, old_status, new_status, actor_type, actor_id, actor_name, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.SupplierID,
		statusPtr(entry.OldStatus),
		string(entry.NewStatus),
		string(entry.Actor.Type),
		entry.Actor.ID,
		entry.Actor.Name,
		nullable(entry.Notes),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert supplier history: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendDocument(ctx context.Context, entry DocumentStatusHistory) error {
	query := `
		INSERT INTO document_status_history (id, document_id, supplier_id, old_status, new_status, actor_type, actor_id, actor_name, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var old *string
	if entry.OldStatus != nil {
		v := string(*entry.OldStatus)
		old = &v
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.DocumentID,
		entry.SupplierID,
		old,
		string(entry.NewStatus),
		string(entry.Actor.Type),
		entry.Actor.ID,
		entry.Actor.Name,
		nullable(entry.Notes),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSupplier(ctx context.Context, supplierID uuid.UUID) ([]SupplierStatusHistory, error) {
	query := `
		SELECT id, supplier_id, old_status, new_status, actor_type, actor_id, actor_name, notes, created_at
		FROM supplier_status_history
		WHERE supplier_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list supplier history: %w", err)
	}
	defer rows.Close()

	var out []SupplierStatusHistory
	for rows.Next() {
		var entry SupplierStatusHistory
		var old, notes sql.NullString
		var actorID uuid.NullUUID
		var actorType string
		if err := rows.Scan(&entry.ID, &entry.SupplierID, &old, &entry.NewStatus, &actorType, &actorID, &entry.Actor.Name, &notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier history: %w", err)
		}
		entry.Actor.Type = domain.ActorType(actorType)
		if actorID.Valid {
			id := actorID.UUID
			entry.Actor.ID = &id
		}
		if old.Valid {
			v := domain.SupplierStatus(old.String)
			entry.OldStatus = &v
		}
		entry.Notes = notes.String
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListDocument(ctx context.Context, documentID uuid.UUID) ([]DocumentStatusHistory, error) {
	query := `
		SELECT id, document_id, supplier_id, old_status, new_status, actor_type, actor_id, actor_name, notes, created_at
		FROM document_status_history
		WHERE document_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document history: %w", err)
	}
	defer rows.Close()

	var out []DocumentStatusHistory
	for rows.Next() {
		var entry DocumentStatusHistory
		var old, notes sql.NullString
		var actorID uuid.NullUUID
		var actorType string
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &entry.SupplierID, &old, &entry.NewStatus, &actorType, &actorID, &entry.Actor.Name, &notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document history: %w", err)
		}
		entry.Actor.Type = domain.ActorType(actorType)
		if actorID.Valid {
			id := actorID.UUID
			entry.Actor.ID = &id
		}
		if old.Valid {
			v := domain.VerificationStatus(old.String)
			entry.OldStatus = &v
		}
		entry.Notes = notes.String
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Append(ctx context.Context, entry ActivityLogEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	query := `
		INSERT INTO activity_log (id, supplier_id, activity_type, title, description, actor_type, actor_id, actor_name, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.SupplierID,
		string(entry.Type),
		entry.Title,
		entry.Description,
		string(entry.Actor.Type),
		entry.Actor.ID,
		entry.Actor.Name,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]ActivityLogEntry, error) {
	query := `
		SELECT id, supplier_id, activity_type, title, description, actor_type, actor_id, actor_name, metadata, created_at
		FROM activity_log
		WHERE supplier_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, supplierID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity log: %w", err)
	}
	defer rows.Close()

	var out []ActivityLogEntry
	for rows.Next() {
		var entry ActivityLogEntry
		var actorType string
		var actorID uuid.NullUUID
		var metadata []byte
		if err := rows.Scan(&entry.ID, &entry.SupplierID, &entry.Type, &entry.Title, &entry.Description, &actorType, &actorID, &entry.Actor.Name, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		entry.Actor.Type = domain.ActorType(actorType)
		if actorID.Valid {
			id := actorID.UUID
			entry.Actor.ID = &id
		}
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal activity metadata: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Enqueue(ctx context.Context, entry ActivityLogEntry) error {
	payload, err := marshalOutboxPayload(entry)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO activity_outbox (id, supplier_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, entry.ID, entry.SupplierID, payload, entry.CreatedAt); err != nil {
		return fmt.Errorf("insert activity outbox: %w", err)
	}
	return nil
}

func (s *PostgresStore) Unpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, supplier_id, payload, created_at
		FROM activity_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.SupplierID, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE activity_outbox SET published_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func statusPtr(s *domain.SupplierStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
