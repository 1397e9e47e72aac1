// Package ledger appends records to per-principal logs.
//
// Every append runs in one transaction: make sure the wallet exists, take
// the next index from the wallet counter, insert the record, countersign it
// and store the receipt. If any step fails the counter increment is rolled
// back with the record, so indices stay gapless.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/receipt"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	ExpressionIDPrefix = "expr_"
	TransferIDPrefix   = "xfer_"
)

// ErrSenderWalletMissing rejects a transfer from a principal without a wallet.
var ErrSenderWalletMissing = common.NewValidationError("Sender wallet does not exist. Call express first.")

// Ledger assigns per-wallet log indices and persists records with their
// receipts in one transaction.
type Ledger struct {
	tx     dbx.TxRunner
	repos  repomanager.RepositoryManager
	signer *receipt.Signer
	newID  func(prefix string) (string, error)
}

// New returns a Ledger writing through repos inside tx.
func New(tx dbx.TxRunner, repos repomanager.RepositoryManager, signer *receipt.Signer) *Ledger {
	return &Ledger{tx: tx, repos: repos, signer: signer, newID: NewID}
}

// NewID returns prefix followed by a time-ordered UUID in compact hex.
func NewID(prefix string) (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return prefix + strings.ReplaceAll(u.String(), "-", ""), nil
}

// ExpressionInput is a validated express call.
type ExpressionInput struct {
	Author          string
	Type            string
	Payload         map[string]any
	PayloadHash     string
	GlyphHash       *string
	AuthorSignature string
}

// ExpressionResult is the stored expression and whether its author wallet
// was created by this call.
type ExpressionResult struct {
	Expression    *models.Expression
	WalletCreated bool
}

// AppendExpression creates the author wallet if needed, takes the next
// expression index and stores the expression with its receipt.
func (l *Ledger) AppendExpression(ctx context.Context, in ExpressionInput) (*ExpressionResult, error) {
	var res *ExpressionResult

	err := l.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res = nil
		w := l.repos.Wallets(tx)
		exprs := l.repos.Expressions(tx)

		created, err := w.EnsureExists(ctx, in.Author)
		if err != nil {
			return err
		}
		idx, err := w.NextIndex(ctx, in.Author, models.CounterExpressions)
		if err != nil {
			return err
		}

		id, err := l.newID(ExpressionIDPrefix)
		if err != nil {
			return err
		}
		e := &models.Expression{
			ID:              id,
			AuthorPubKey:    in.Author,
			Type:            in.Type,
			Payload:         in.Payload,
			PayloadHash:     in.PayloadHash,
			GlyphHash:       in.GlyphHash,
			AuthorSignature: in.AuthorSignature,
			LogIndex:        idx,
		}
		if err := exprs.Create(ctx, e); err != nil {
			return err
		}

		rc, err := l.signer.SignExpression(e.ID, e.PayloadHash, e.LogIndex)
		if err != nil {
			return err
		}
		if err := exprs.AttachReceipt(ctx, e.ID, rc); err != nil {
			return err
		}
		e.Receipt = rc

		res = &ExpressionResult{Expression: e, WalletCreated: created}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append expression: %w", err)
	}
	return res, nil
}

// TransferInput is a validated transfer call.
type TransferInput struct {
	From            string
	To              string
	Payload         map[string]any
	PayloadHash     string
	Visibility      string
	SenderSignature string
}

// AppendTransfer records a transfer in the sender's sent log and, when the
// recipient already has a wallet, in the recipient's received log. The
// sender's wallet must exist.
func (l *Ledger) AppendTransfer(ctx context.Context, in TransferInput) (*models.Transfer, error) {
	var res *models.Transfer

	err := l.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res = nil
		w := l.repos.Wallets(tx)

		if _, err := w.Get(ctx, in.From); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrSenderWalletMissing
			}
			return err
		}
		recipientExists := true
		if _, err := w.Get(ctx, in.To); err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			recipientExists = false
		}

		senderIdx, recipientIdx, err := l.takeTransferIndices(ctx, w, in.From, in.To, recipientExists)
		if err != nil {
			return err
		}

		id, err := l.newID(TransferIDPrefix)
		if err != nil {
			return err
		}
		t := &models.Transfer{
			ID:                id,
			From:              in.From,
			To:                in.To,
			PayloadHash:       in.PayloadHash,
			Visibility:        in.Visibility,
			SenderSignature:   in.SenderSignature,
			SenderLogIndex:    senderIdx,
			RecipientLogIndex: recipientIdx,
			WitnessStatus:     models.WitnessPending,
		}
		if in.Visibility == models.VisibilityPublic {
			t.Payload = in.Payload
		}

		transfers := l.repos.Transfers(tx)
		if err := transfers.Create(ctx, t); err != nil {
			return err
		}

		rc, err := l.signer.SignTransfer(t.ID, t.PayloadHash, t.SenderLogIndex, t.RecipientLogIndex)
		if err != nil {
			return err
		}
		if err := transfers.AttachReceipt(ctx, t.ID, rc); err != nil {
			return err
		}
		t.Receipt = rc
		t.WitnessStatus = models.WitnessWitnessed

		res = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append transfer: %w", err)
	}
	return res, nil
}

type indexer interface {
	NextIndex(ctx context.Context, publicKey string, counter models.Counter) (int64, error)
}

// takeTransferIndices increments the two wallet rows in ascending key order
// so that opposing transfers between the same pair cannot deadlock.
func (l *Ledger) takeTransferIndices(ctx context.Context, w indexer, from, to string, recipientExists bool) (int64, *int64, error) {
	var (
		senderIdx    int64
		recipientIdx *int64
	)
	takeSender := func() error {
		idx, err := w.NextIndex(ctx, from, models.CounterTransfersSent)
		senderIdx = idx
		return err
	}
	takeRecipient := func() error {
		if !recipientExists {
			return nil
		}
		idx, err := w.NextIndex(ctx, to, models.CounterTransfersReceived)
		if err != nil {
			return err
		}
		recipientIdx = &idx
		return nil
	}

	steps := []func() error{takeSender, takeRecipient}
	if to < from {
		steps[0], steps[1] = steps[1], steps[0]
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return 0, nil, err
		}
	}
	return senderIdx, recipientIdx, nil
}
