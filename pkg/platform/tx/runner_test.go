package tx

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunnerNestedCallJoinsOuter(t *testing.T) {
	runner := NewMemoryRunner()

	var depth int
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		depth++
		return runner.RunInTx(ctx, func(ctx context.Context) error {
			depth++
			return runner.RunInTx(ctx, func(context.Context) error {
				depth++
				return nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
}

func TestMemoryRunnerNestedErrorPropagates(t *testing.T) {
	runner := NewMemoryRunner()
	boom := errors.New("insert failed")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
}

func TestMemoryRunnerCancelledContext(t *testing.T) {
	runner := NewMemoryRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.RunInTx(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSQLRunnerNestedReusesOuterTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE suppliers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	runner := NewSQLRunner(db)
	err = runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(ctx context.Context) error {
			dbTx, ok := From(ctx)
			require.True(t, ok, "nested call should see the outer transaction")
			_, execErr := dbTx.ExecContext(ctx, "UPDATE suppliers SET status = 'APPROVED'")
			return execErr
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRunnerRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("constraint violated")
	runner := NewSQLRunner(db)
	err = runner.RunInTx(context.Background(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
