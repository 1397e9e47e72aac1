// Package transfers persists transfers between principals.
package transfers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zeroledger/internal/canonjson"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

const selectColumns = `id, from_pubkey, to_pubkey, payload_hash, payload_json, visibility, sender_signature,
		        sender_log_index, recipient_log_index, witness_status, receipt_signature,
		        receipt_timestamp, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Transfer) error {
	var payload any
	if t.Payload != nil {
		b, err := canonjson.Marshal(t.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = string(b)
	}

	query :=
		`INSERT INTO transfers (id, from_pubkey, to_pubkey, payload_hash, payload_json, visibility,
		                        sender_signature, sender_log_index, recipient_log_index, witness_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.From, t.To, t.PayloadHash, payload, t.Visibility,
		t.SenderSignature, t.SenderLogIndex, t.RecipientLogIndex, t.WitnessStatus).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AttachReceipt(ctx context.Context, id string, rc *models.Receipt) error {
	query :=
		`UPDATE transfers SET receipt_signature = $2, receipt_timestamp = $3, witness_status = $4
		 WHERE id = $1 AND receipt_signature IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, id, rc.Signature, rc.Timestamp, models.WitnessWitnessed)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrReceiptExists
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	query := `SELECT ` + selectColumns + `
		 FROM transfers
		 WHERE id = $1
		 `

	t, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter, page models.Page) ([]*models.Transfer, int64, error) {
	var (
		where string
		args  []any
	)
	switch {
	case f.From != "" && f.To != "":
		where, args = `from_pubkey = $1 AND to_pubkey = $2`, []any{f.From, f.To}
	case f.From != "":
		where, args = `from_pubkey = $1`, []any{f.From}
	case f.To != "":
		where, args = `to_pubkey = $1`, []any{f.To}
	default:
		return nil, 0, errors.New("transfers: empty filter")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM transfers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s
		 FROM transfers
		 WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d OFFSET $%d
		 `, selectColumns, where, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(s scanner) (*models.Transfer, error) {
	t := &models.Transfer{}
	var (
		payload      []byte
		recipientIdx sql.NullInt64
		sig, ts      sql.NullString
	)
	if err := s.Scan(&t.ID, &t.From, &t.To, &t.PayloadHash, &payload, &t.Visibility, &t.SenderSignature,
		&t.SenderLogIndex, &recipientIdx, &t.WitnessStatus, &sig, &ts, &t.CreatedAt); err != nil {
		return nil, err
	}

	if payload != nil {
		decoded, err := canonjson.Decode(payload)
		if err != nil {
			return nil, err
		}
		m, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("transfer %s: payload is not an object", t.ID)
		}
		t.Payload = m
	}
	if recipientIdx.Valid {
		v := recipientIdx.Int64
		t.RecipientLogIndex = &v
	}
	if sig.Valid {
		t.Receipt = &models.Receipt{Signature: sig.String, Timestamp: ts.String}
	}
	return t, nil
}
