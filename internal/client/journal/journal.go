// Package journal is the agent's local record of ledger receipts. Every
// successful express or transfer is stored so its server countersignature
// can be re-checked later, offline, against the announced server key.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/client/migrations"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/receipt"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Record kinds.
const (
	KindExpression = "expression"
	KindTransfer   = "transfer"
)

// Entry is one stored receipt. For transfers LogIndex is the sender's index.
type Entry struct {
	RecordID          string
	Kind              string
	PayloadHash       string
	LogIndex          int64
	RecipientLogIndex *int64
	ServerSignature   string
	ServerTimestamp   string
	RecordedAt        time.Time
}

// Body rebuilds the receipt body the server signed.
func (e *Entry) Body() map[string]any {
	if e.Kind == KindTransfer {
		return receipt.TransferBody(e.RecordID, e.PayloadHash, e.LogIndex, e.RecipientLogIndex, e.ServerTimestamp)
	}
	return receipt.ExpressionBody(e.RecordID, e.PayloadHash, e.LogIndex, e.ServerTimestamp)
}

// Verify checks the stored countersignature against serverPubHex.
func (e *Entry) Verify(serverPubHex string) (bool, error) {
	return receipt.Verify(serverPubHex, e.Body(), e.ServerSignature)
}

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the journal at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" journals coherent.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

type expressResult struct {
	ExpressionID string `json:"expression_id"`
	PayloadHash  string `json:"payload_hash"`
	Receipt      struct {
		ServerSignature string `json:"server_signature"`
		ServerTimestamp string `json:"server_timestamp"`
		LogIndex        int64  `json:"log_index"`
	} `json:"receipt"`
}

type transferResult struct {
	TransferID  string `json:"transfer_id"`
	PayloadHash string `json:"payload_hash"`
	Receipt     struct {
		ServerSignature   string `json:"server_signature"`
		ServerTimestamp   string `json:"server_timestamp"`
		SenderLogIndex    int64  `json:"sender_log_index"`
		RecipientLogIndex *int64 `json:"recipient_log_index"`
	} `json:"receipt"`
}

// reshape converts a decoded tool result into a typed struct. Numbers may
// be json.Number (HTTP) or float64 (gRPC).
func reshape(out map[string]any, v any) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// RecordExpression stores the receipt of an express result.
func (j *Journal) RecordExpression(ctx context.Context, out map[string]any) (*Entry, error) {
	var r expressResult
	if err := reshape(out, &r); err != nil {
		return nil, fmt.Errorf("decode express result: %w", err)
	}
	if r.ExpressionID == "" || r.Receipt.ServerSignature == "" {
		return nil, errors.New("express result carries no receipt")
	}
	e := &Entry{
		RecordID:        r.ExpressionID,
		Kind:            KindExpression,
		PayloadHash:     r.PayloadHash,
		LogIndex:        r.Receipt.LogIndex,
		ServerSignature: r.Receipt.ServerSignature,
		ServerTimestamp: r.Receipt.ServerTimestamp,
	}
	if err := j.insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordTransfer stores the receipt of a transfer result.
func (j *Journal) RecordTransfer(ctx context.Context, out map[string]any) (*Entry, error) {
	var r transferResult
	if err := reshape(out, &r); err != nil {
		return nil, fmt.Errorf("decode transfer result: %w", err)
	}
	if r.TransferID == "" || r.Receipt.ServerSignature == "" {
		return nil, errors.New("transfer result carries no receipt")
	}
	e := &Entry{
		RecordID:          r.TransferID,
		Kind:              KindTransfer,
		PayloadHash:       r.PayloadHash,
		LogIndex:          r.Receipt.SenderLogIndex,
		RecipientLogIndex: r.Receipt.RecipientLogIndex,
		ServerSignature:   r.Receipt.ServerSignature,
		ServerTimestamp:   r.Receipt.ServerTimestamp,
	}
	if err := j.insert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (j *Journal) insert(ctx context.Context, e *Entry) error {
	e.RecordedAt = j.now().UTC()
	return dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM receipts WHERE record_id = ?`, e.RecordID).Scan(&exists)
		if err == nil {
			return common.ErrReceiptExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO receipts (record_id, kind, payload_hash, log_index, recipient_log_index,
			                      server_signature, server_timestamp, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RecordID, e.Kind, e.PayloadHash, e.LogIndex, e.RecipientLogIndex,
			e.ServerSignature, e.ServerTimestamp, timex.FormatISO(e.RecordedAt))
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

const selectEntry = `SELECT record_id, kind, payload_hash, log_index, recipient_log_index,
       server_signature, server_timestamp, recorded_at FROM receipts`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	var (
		e          Entry
		recipient  sql.NullInt64
		recordedAt string
	)
	if err := row.Scan(&e.RecordID, &e.Kind, &e.PayloadHash, &e.LogIndex, &recipient,
		&e.ServerSignature, &e.ServerTimestamp, &recordedAt); err != nil {
		return nil, err
	}
	if recipient.Valid {
		v := recipient.Int64
		e.RecipientLogIndex = &v
	}
	t, err := timex.ParseISO(recordedAt)
	if err != nil {
		return nil, fmt.Errorf("recorded_at: %w", err)
	}
	e.RecordedAt = t
	return &e, nil
}

func (j *Journal) Get(ctx context.Context, recordID string) (*Entry, error) {
	e, err := scanEntry(j.db.QueryRowContext(ctx, selectEntry+` WHERE record_id = ?`, recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (j *Journal) List(ctx context.Context, limit int) ([]*Entry, error) {
	q := selectEntry + ` ORDER BY recorded_at DESC, record_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
