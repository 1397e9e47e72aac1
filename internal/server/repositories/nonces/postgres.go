// Package nonces persists consumed request nonces for replay protection.
package nonces

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, publicKey, nonce string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM used_nonces WHERE public_key = $1 AND nonce = $2
		 )
		 `

	var found bool
	if err := r.db.QueryRowContext(ctx, query, publicKey, nonce).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, publicKey, nonce string, usedAt time.Time) error {
	query :=
		`INSERT INTO used_nonces (public_key, nonce, used_at)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, publicKey, nonce, usedAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrNonceExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM used_nonces WHERE used_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
