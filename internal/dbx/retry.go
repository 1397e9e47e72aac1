package dbx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// PostgreSQL SQLSTATE codes the ledger reacts to.
const (
	SQLStateUniqueViolation      = "23505"
	SQLStateSerializationFailure = "40001"
	SQLStateDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == SQLStateUniqueViolation
}

// IsRetryable reports whether err is a transient conflict between concurrent
// transactions: serialization failure, deadlock, a unique-key race, or
// common.ErrConflict raised by a repository.
func IsRetryable(err error) bool {
	if errors.Is(err, common.ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case SQLStateSerializationFailure, SQLStateDeadlockDetected, SQLStateUniqueViolation:
		return true
	}
	return false
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// RetryingTxRunner wraps WithTx and repeats the whole transaction when it
// fails with a retryable conflict, up to Attempts times in total.
type RetryingTxRunner struct {
	db       *sql.DB
	opts     *sql.TxOptions
	attempts uint64
	base     time.Duration
}

func NewRetryingTxRunner(db *sql.DB, opts *sql.TxOptions, attempts int, base time.Duration) *RetryingTxRunner {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	return &RetryingTxRunner{db: db, opts: opts, attempts: uint64(attempts), base: base}
}

func (r *RetryingTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	return WithRetry(ctx, r.attempts, r.base, func(ctx context.Context) error {
		return WithTx(ctx, r.db, r.opts, fn)
	})
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or
// attempts calls have been made. The last error is returned unwrapped.
func WithRetry(ctx context.Context, attempts uint64, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.WithJitterPercent(20, retry.NewExponential(base)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
