package services

import (
	"github.com/dmitrijs2005/zeroledger/internal/server/glyph"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/payload"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

type WalletRef struct {
	PublicKey string `json:"public_key"`
	Created   bool   `json:"created"`
}

type ExpressReceipt struct {
	ServerSignature string `json:"server_signature"`
	ServerTimestamp string `json:"server_timestamp"`
	LogIndex        int64  `json:"log_index"`
}

type ExpressOutput struct {
	ExpressionID   string         `json:"expression_id"`
	ExpressionType string         `json:"expression_type"`
	PayloadHash    string         `json:"payload_hash"`
	Wallet         WalletRef      `json:"wallet"`
	RenderURL      *string        `json:"render_url"`
	Receipt        ExpressReceipt `json:"receipt"`
}

type TransferReceipt struct {
	ServerSignature   string `json:"server_signature"`
	ServerTimestamp   string `json:"server_timestamp"`
	SenderLogIndex    int64  `json:"sender_log_index"`
	RecipientLogIndex *int64 `json:"recipient_log_index"`
}

type TransferOutput struct {
	TransferID    string          `json:"transfer_id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	PayloadHash   string          `json:"payload_hash"`
	Visibility    string          `json:"visibility"`
	Receipt       TransferReceipt `json:"receipt"`
	WitnessStatus string          `json:"witness_status"`
}

type WalletStats struct {
	ExpressionCount       int64 `json:"expression_count"`
	TransferSentCount     int64 `json:"transfer_sent_count"`
	TransferReceivedCount int64 `json:"transfer_received_count"`
}

type SignatureExpressionView struct {
	ExpressionID string  `json:"expression_id"`
	RenderURL    *string `json:"render_url"`
	Glyph        *string `json:"glyph"`
}

// WalletView is the wallet as shown to callers. SignatureExpression is left
// nil to omit the key; a typed nil *SignatureExpressionView renders as null.
type WalletView struct {
	PublicKey           string      `json:"public_key"`
	CreatedAt           string      `json:"created_at"`
	SignatureExpression any         `json:"signature_expression,omitempty"`
	Stats               WalletStats `json:"stats"`
}

type HistoryEntry struct {
	ExpressionID   string         `json:"expression_id"`
	ExpressionType string         `json:"expression_type"`
	Payload        map[string]any `json:"payload"`
	PayloadHash    string         `json:"payload_hash"`
	LogIndex       int64          `json:"log_index"`
	CreatedAt      string         `json:"created_at"`
}

type OwnOutput struct {
	Wallet      WalletView     `json:"wallet"`
	Expressions []HistoryEntry `json:"expressions,omitempty"`
}

// ReceiptView is a stored receipt; both fields are null until attached.
type ReceiptView struct {
	ServerSignature *string `json:"server_signature"`
	ServerTimestamp *string `json:"server_timestamp"`
}

type ExpressionView struct {
	ExpressionID    string         `json:"expression_id"`
	ExpressionType  string         `json:"expression_type"`
	Payload         map[string]any `json:"payload"`
	PayloadHash     string         `json:"payload_hash"`
	Author          string         `json:"author,omitempty"`
	AuthorSignature string         `json:"author_signature,omitempty"`
	LogIndex        int64          `json:"log_index"`
	Receipt         ReceiptView    `json:"receipt"`
}

type TransferReceiptView struct {
	ServerSignature   *string `json:"server_signature"`
	ServerTimestamp   *string `json:"server_timestamp"`
	SenderLogIndex    int64   `json:"sender_log_index"`
	RecipientLogIndex *int64  `json:"recipient_log_index"`
}

type TransferView struct {
	TransferID      string              `json:"transfer_id"`
	From            string              `json:"from"`
	To              string              `json:"to"`
	Payload         map[string]any      `json:"payload"`
	PayloadHash     string              `json:"payload_hash"`
	Visibility      string              `json:"visibility"`
	SenderSignature string              `json:"sender_signature,omitempty"`
	Receipt         TransferReceiptView `json:"receipt"`
	WitnessStatus   string              `json:"witness_status"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

func newPagination(total int64, page models.Page) Pagination {
	return Pagination{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: int64(page.Offset+page.Limit) < total,
	}
}

type ExpressionList struct {
	Data       []ExpressionView `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type TransferList struct {
	Data       []TransferView `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

func receiptView(r *models.Receipt) ReceiptView {
	if r == nil {
		return ReceiptView{}
	}
	sig, ts := r.Signature, r.Timestamp
	return ReceiptView{ServerSignature: &sig, ServerTimestamp: &ts}
}

func expressionView(e *models.Expression, withAuthor bool) ExpressionView {
	v := ExpressionView{
		ExpressionID:   e.ID,
		ExpressionType: e.Type,
		Payload:        e.Payload,
		PayloadHash:    e.PayloadHash,
		LogIndex:       e.LogIndex,
		Receipt:        receiptView(e.Receipt),
	}
	if withAuthor {
		v.Author = e.AuthorPubKey
		v.AuthorSignature = e.AuthorSignature
	}
	return v
}

func transferView(t *models.Transfer, withSignature bool) TransferView {
	rv := receiptView(t.Receipt)
	v := TransferView{
		TransferID:  t.ID,
		From:        t.From,
		To:          t.To,
		Payload:     t.Payload,
		PayloadHash: t.PayloadHash,
		Visibility:  t.Visibility,
		Receipt: TransferReceiptView{
			ServerSignature:   rv.ServerSignature,
			ServerTimestamp:   rv.ServerTimestamp,
			SenderLogIndex:    t.SenderLogIndex,
			RecipientLogIndex: t.RecipientLogIndex,
		},
		WitnessStatus: t.WitnessStatus,
	}
	if withSignature {
		v.SenderSignature = t.SenderSignature
	}
	return v
}

func walletView(w *models.Wallet) WalletView {
	return WalletView{
		PublicKey: w.PublicKey,
		CreatedAt: timex.FormatISO(w.CreatedAt),
		Stats: WalletStats{
			ExpressionCount:       w.ExpressionCount,
			TransferSentCount:     w.TransferSentCount,
			TransferReceivedCount: w.TransferReceivedCount,
		},
	}
}

// signatureView describes a wallet's designated expression. Glyphs carry
// their data and render link; other types have both set to null.
func signatureView(e *models.Expression, baseURL string) *SignatureExpressionView {
	v := &SignatureExpressionView{ExpressionID: e.ID}
	if e.Type == payload.TypeGlyph {
		if data, ok := e.Payload["data"].(string); ok {
			u := glyph.URL(baseURL, data)
			v.RenderURL = &u
			v.Glyph = &data
		}
	}
	return v
}
