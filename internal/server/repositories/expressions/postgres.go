// Package expressions persists authored expressions.
package expressions

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

const selectColumns = `id, author_pubkey, expression_type, payload, payload_hash, glyph_hash,
		        author_signature, log_index, receipt_signature, receipt_timestamp, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Expression) error {
	payload, err := canonjson.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query :=
		`INSERT INTO expressions (id, author_pubkey, expression_type, payload, payload_hash,
		                          glyph_hash, author_signature, log_index)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		e.ID, e.AuthorPubKey, e.Type, string(payload), e.PayloadHash,
		e.GlyphHash, e.AuthorSignature, e.LogIndex).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AttachReceipt(ctx context.Context, id string, rc *models.Receipt) error {
	query :=
		`UPDATE expressions SET receipt_signature = $2, receipt_timestamp = $3
		 WHERE id = $1 AND receipt_signature IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, id, rc.Signature, rc.Timestamp)
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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Expression, error) {
	query := `SELECT ` + selectColumns + `
		 FROM expressions
		 WHERE id = $1
		 `

	e, err := scanExpression(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, author string, page models.Page) ([]*models.Expression, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM expressions WHERE author_pubkey = $1`, author).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	order := "DESC"
	if page.Ascending {
		order = "ASC"
	}
	query := `SELECT ` + selectColumns + `
		 FROM expressions
		 WHERE author_pubkey = $1
		 ORDER BY log_index ` + order + `
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, author, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Expression
	for rows.Next() {
		e, err := scanExpression(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return out, total, nil
}

// FindGlyphByHashPrefix orders by creation time then id so that a prefix
// shared by several glyphs always resolves to the same one.
func (r *PostgresRepository) FindGlyphByHashPrefix(ctx context.Context, prefix string) (*models.Expression, error) {
	query := `SELECT ` + selectColumns + `
		 FROM expressions
		 WHERE expression_type = 'glyph' AND glyph_hash LIKE $1 || '%'
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1
		 `

	e, err := scanExpression(r.db.QueryRowContext(ctx, query, prefix))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpression(s scanner) (*models.Expression, error) {
	e := &models.Expression{}
	var (
		payload   []byte
		glyphHash sql.NullString
		sig, ts   sql.NullString
	)
	if err := s.Scan(&e.ID, &e.AuthorPubKey, &e.Type, &payload, &e.PayloadHash, &glyphHash,
		&e.AuthorSignature, &e.LogIndex, &sig, &ts, &e.CreatedAt); err != nil {
		return nil, err
	}

	decoded, err := canonjson.Decode(payload)
	if err != nil {
		return nil, err
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expression %s: payload is not an object", e.ID)
	}
	e.Payload = m

	if glyphHash.Valid {
		e.GlyphHash = &glyphHash.String
	}
	if sig.Valid {
		e.Receipt = &models.Receipt{Signature: sig.String, Timestamp: ts.String}
	}
	return e, nil
}
