// Package services implements the ledger tools (express, own, transfer), the
// public read model and nonce bookkeeping.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/canonjson"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/glyph"
	"github.com/dmitrijs2005/zeroledger/internal/server/ledger"
	"github.com/dmitrijs2005/zeroledger/internal/server/payload"
)

const publishTimeout = 10 * time.Second

// ExpressService appends expressions to the caller's log.
type ExpressService struct {
	ledger    *ledger.Ledger
	publisher glyph.Publisher
	baseURL   string
	timeout   storeTimeout
	logger    logging.Logger
}

func NewExpressService(l *ledger.Ledger, publisher glyph.Publisher, baseURL string, timeout time.Duration, logger logging.Logger) *ExpressService {
	if publisher == nil {
		publisher = glyph.NopPublisher{}
	}
	return &ExpressService{
		ledger:    l,
		publisher: publisher,
		baseURL:   baseURL,
		timeout:   storeTimeout(timeout),
		logger:    logger.With("service", "express"),
	}
}

// payloadHash hashes the canonical form of a payload. Numbers that cannot
// be represented are a caller error.
func payloadHash(p map[string]any) (string, error) {
	h, err := canonjson.Hash(p)
	if err != nil {
		if errors.Is(err, canonjson.ErrUnsupportedNumber) {
			return "", common.NewValidationError("payload contains an unsupported number")
		}
		return "", err
	}
	return h, nil
}

func (s *ExpressService) Express(ctx context.Context, ac *auth.Context, params map[string]any) (*ExpressOutput, error) {
	p, err := payload.Parse(params["expression_type"], params["payload"])
	if err != nil {
		return nil, err
	}
	hash, err := payloadHash(p.Fields())
	if err != nil {
		return nil, err
	}

	in := ledger.ExpressionInput{
		Author:          ac.PublicKey,
		Type:            p.Type(),
		Payload:         p.Fields(),
		PayloadHash:     hash,
		AuthorSignature: ac.Signature,
	}

	var (
		renderURL *string
		g         payload.Glyph
		isGlyph   bool
	)
	if g, isGlyph = p.(payload.Glyph); isGlyph {
		h := glyph.Hash(g.Data)
		u := glyph.URL(s.baseURL, g.Data)
		in.GlyphHash = &h
		renderURL = &u
	}

	sctx, cancel := s.timeout.ctx(ctx)
	defer cancel()
	res, err := s.ledger.AppendExpression(sctx, in)
	if err != nil {
		return nil, err
	}
	e := res.Expression

	if isGlyph {
		s.publish(ctx, *in.GlyphHash, g.Data)
	}

	s.logger.Info(ctx, "expression appended",
		"expression_id", e.ID, "author", e.AuthorPubKey, "log_index", e.LogIndex, "wallet_created", res.WalletCreated)

	return &ExpressOutput{
		ExpressionID:   e.ID,
		ExpressionType: e.Type,
		PayloadHash:    e.PayloadHash,
		Wallet:         WalletRef{PublicKey: e.AuthorPubKey, Created: res.WalletCreated},
		RenderURL:      renderURL,
		Receipt: ExpressReceipt{
			ServerSignature: e.Receipt.Signature,
			ServerTimestamp: e.Receipt.Timestamp,
			LogIndex:        e.LogIndex,
		},
	}, nil
}

// publish uploads the rendered glyph. The expression is already committed,
// so a failure is only logged.
func (s *ExpressService) publish(ctx context.Context, hash, data string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, hash, glyph.Render(data)); err != nil {
		s.logger.Warn(ctx, "glyph publish failed", "glyph_hash", hash, "error", err)
	}
}
