// Package wallets persists wallets and hands out their per-kind log indices.
package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, publicKey string) (*models.Wallet, error) {
	query :=
		`SELECT public_key, signature_expression_id, created_at,
		        expression_count, transfer_sent_count, transfer_received_count
		 FROM wallets
		 WHERE public_key = $1
		 `

	w := &models.Wallet{}
	var sigID sql.NullString
	err := r.db.QueryRowContext(ctx, query, publicKey).Scan(
		&w.PublicKey, &sigID, &w.CreatedAt,
		&w.ExpressionCount, &w.TransferSentCount, &w.TransferReceivedCount)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if sigID.Valid {
		w.SignatureExpressionID = &sigID.String
	}
	return w, nil
}

func (r *PostgresRepository) EnsureExists(ctx context.Context, publicKey string) (bool, error) {
	query :=
		`INSERT INTO wallets (public_key)
		 VALUES ($1)
		 ON CONFLICT (public_key) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, publicKey)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// NextIndex relies on the row lock taken by UPDATE: concurrent callers for
// the same wallet are serialised and each sees the previous increment.
func (r *PostgresRepository) NextIndex(ctx context.Context, publicKey string, counter models.Counter) (int64, error) {
	col := counter.Column()
	query := fmt.Sprintf(
		`UPDATE wallets SET %[1]s = %[1]s + 1
		 WHERE public_key = $1
		 RETURNING %[1]s
		 `, col)

	var idx int64
	err := r.db.QueryRowContext(ctx, query, publicKey).Scan(&idx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return idx, nil
}

func (r *PostgresRepository) SetSignatureExpression(ctx context.Context, publicKey, expressionID string) error {
	query :=
		`UPDATE wallets SET signature_expression_id = $2
		 WHERE public_key = $1
		 `

	res, err := r.db.ExecContext(ctx, query, publicKey, expressionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
