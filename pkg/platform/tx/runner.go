package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// defaultTimeout bounds a transaction when the caller supplied no deadline.
const defaultTimeout = 5 * time.Second

// Runner provides a transactional boundary for a unit of work. The SQL
// implementation wraps a database transaction; the memory implementation uses
// a coarse lock so memory-store tests observe the same serialization.
//
// The function receives a context carrying the transaction (see WithTx);
// stores that understand tx-in-context will route their writes through it so
// an entity mutation and its audit rows commit or roll back together.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs units of work inside a *sql.DB transaction.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db, timeout: defaultTimeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// Nested calls reuse the outer transaction.
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		return err
	}
	return dbTx.Commit()
}

// MemoryRunner serializes units of work with a mutex. It cannot undo partial
// writes, so memory stores used under it must apply multi-row operations all
// at once or not at all.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

type memTxKey struct{}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Nested calls on the same runner join the outer critical section; the
	// mutex is not reentrant.
	if held, ok := ctx.Value(memTxKey{}).(*MemoryRunner); ok && held == r {
		return fn(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, r))
}
