package trail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	txpkg "vendorhub/pkg/platform/tx"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStore(db), mock, func() { _ = db.Close() }
}

func TestAppendSupplierHistory(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	old := domain.StatusSubmitted
	adminID := uuid.New()
	entry := SupplierStatusHistory{
		ID:         uuid.New(),
		SupplierID: uuid.New(),
		OldStatus:  &old,
		NewStatus:  domain.StatusUnderReview,
		Actor:      domain.Actor{Type: domain.ActorAdmin, ID: &adminID, Name: "Ops Admin"},
		Notes:      "assigned",
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO supplier_status_history").
		WithArgs(entry.ID, entry.SupplierID, "SUBMITTED", "UNDER_REVIEW", "admin", &adminID, "Ops Admin", sqlmock.AnyArg(), entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.AppendSupplier(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSupplierHistory(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	supplierID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "supplier_id", "old_status", "new_status", "actor_type", "actor_id", "actor_name", "notes", "created_at",
	}).
		AddRow(uuid.New(), supplierID, "SUBMITTED", "UNDER_REVIEW", "admin", uuid.New(), "Ops Admin", "assigned", time.Now()).
		AddRow(uuid.New(), supplierID, nil, "SUBMITTED", "vendor", nil, "supplier", nil, time.Now().Add(-time.Hour))

	mock.ExpectQuery("SELECT id, supplier_id, old_status").
		WithArgs(supplierID).
		WillReturnRows(rows)

	history, err := store.ListSupplier(context.Background(), supplierID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.NotNil(t, history[0].OldStatus)
	assert.Equal(t, domain.StatusSubmitted, *history[0].OldStatus)
	assert.Equal(t, domain.ActorAdmin, history[0].Actor.Type)
	assert.NotNil(t, history[0].Actor.ID)

	assert.Nil(t, history[1].OldStatus, "initial transition has no prior status")
	assert.Nil(t, history[1].Actor.ID)
	assert.Empty(t, history[1].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestHistoryAndActivityShareTransaction drives the recorder through a
// SQLRunner: both inserts run on the same transaction, and a failing
// activity insert rolls the history insert back with it.
func TestHistoryAndActivityShareTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	recorder := NewRecorder(store, store, logger.New("trail-test", "error"), metrics.NewForTesting())
	runner := txpkg.NewSQLRunner(db)
	supplierID := uuid.New()

	t.Run("both rows commit together", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO supplier_status_history").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO activity_log").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			return recorder.RecordSupplierTransition(ctx, supplierID,
				domain.StatusSubmitted, domain.StatusUnderReview, domain.SystemActor(), "")
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("activity failure rolls back the history row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO supplier_status_history").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO activity_log").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
			return recorder.RecordSupplierTransition(ctx, supplierID,
				domain.StatusSubmitted, domain.StatusUnderReview, domain.SystemActor(), "")
		})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxLifecycle(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	entry := ActivityLogEntry{
		ID:         uuid.New(),
		SupplierID: uuid.New(),
		Type:       ActivityStatusChange,
		Title:      "Application status updated",
		Actor:      domain.SystemActor(),
		CreatedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO activity_outbox").
		WithArgs(entry.ID, entry.SupplierID, sqlmock.AnyArg(), entry.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Enqueue(context.Background(), entry))

	rows := sqlmock.NewRows([]string{"id", "supplier_id", "payload", "created_at"}).
		AddRow(entry.ID, entry.SupplierID, []byte(`{}`), entry.CreatedAt)
	mock.ExpectQuery("SELECT id, supplier_id, payload").
		WithArgs(100).
		WillReturnRows(rows)

	staged, err := store.Unpublished(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	at := time.Now()
	mock.ExpectExec("UPDATE activity_outbox SET published_at").
		WithArgs(entry.ID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.MarkPublished(context.Background(), entry.ID, at))
	require.NoError(t, mock.ExpectationsWereMet())
}
