// Package memstore is an in-process implementation of every ledger
// repository plus a transaction runner, for development and tests.
//
// Transactions are serialized on one mutex and roll back to a snapshot on
// error, which gives the same isolation the Postgres backend gets from row
// locks and SERIALIZABLE retries.
package memstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/expressions"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/nonces"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/transfers"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/wallets"
)

var errNoSQL = errors.New("memstore: SQL is not supported")

var (
	_ repomanager.RepositoryManager = (*Store)(nil)
	_ dbx.TxRunner                  = (*Store)(nil)
)

type state struct {
	wallets     map[string]models.Wallet
	expressions map[string]models.Expression
	transfers   map[string]models.Transfer
	nonces      map[string]time.Time
}

func newState() *state {
	return &state{
		wallets:     map[string]models.Wallet{},
		expressions: map[string]models.Expression{},
		transfers:   map[string]models.Transfer{},
		nonces:      map[string]time.Time{},
	}
}

// clone copies the maps. Values are structs; their pointer fields are
// never mutated in place so sharing them is safe.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.expressions {
		c.expressions[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.nonces {
		c.nonces[k] = v
	}
	return c
}

type Store struct {
	mu       sync.Mutex
	st       *state
	seq      int64
	now      func() time.Time
	attempts uint64

	// BeforeNextIndex, when set, runs before every index assignment and can
	// fail it, e.g. with common.ErrConflict.
	BeforeNextIndex func() error
}

func New() *Store {
	return &Store{st: newState(), now: time.Now, attempts: 3}
}

// WithAttempts sets how many times a conflicting transaction is tried.
func (s *Store) WithAttempts(n int) *Store {
	if n > 0 {
		s.attempts = uint64(n)
	}
	return s
}

// txHandle marks repositories created inside InTx; the store lock is
// already held for them.
type txHandle struct{}

func (txHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (txHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (txHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

// InTx runs fn under the store lock, restoring the previous state if fn
// fails. Retryable failures are retried like the SQL runner does.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithRetry(ctx, s.attempts, time.Millisecond, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		snap := s.st.clone()
		seq := s.seq
		if err := fn(ctx, txHandle{}); err != nil {
			s.st = snap
			s.seq = seq
			return err
		}
		return nil
	})
}

// RunMigrations is a no-op.
func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Wallets(db dbx.DBTX) wallets.Repository {
	return &walletRepo{s: s, inTx: isTx(db)}
}

func (s *Store) Expressions(db dbx.DBTX) expressions.Repository {
	return &expressionRepo{s: s, inTx: isTx(db)}
}

func (s *Store) Transfers(db dbx.DBTX) transfers.Repository {
	return &transferRepo{s: s, inTx: isTx(db)}
}

func (s *Store) Nonces(db dbx.DBTX) nonces.Repository {
	return &nonceRepo{s: s, inTx: isTx(db)}
}

func isTx(db dbx.DBTX) bool {
	_, ok := db.(txHandle)
	return ok
}

// lock takes the store mutex unless the caller already holds it through
// InTx, and returns the matching unlock.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// stamp returns a creation time that is strictly increasing, so ordering by
// it is stable even when the clock does not advance.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().UTC().Add(time.Duration(s.seq) * time.Nanosecond)
}
