package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

const (
	OwnActionGet          = "get"
	OwnActionSetSignature = "set_signature"
	OwnActionLookup       = "lookup"

	OwnQuerySummary = "summary"
	OwnQueryFull    = "full"
	OwnQueryHistory = "history"

	// HistoryLimit is how many recent expressions query=history returns.
	HistoryLimit = 50
)

// OwnService answers wallet questions and designates signature expressions.
type OwnService struct {
	db      dbx.DBTX
	repos   repomanager.RepositoryManager
	baseURL string
	timeout storeTimeout
}

func NewOwnService(db dbx.DBTX, repos repomanager.RepositoryManager, baseURL string, timeout time.Duration) *OwnService {
	return &OwnService{db: db, repos: repos, baseURL: baseURL, timeout: storeTimeout(timeout)}
}

func (s *OwnService) Own(ctx context.Context, ac *auth.Context, params map[string]any) (*OwnOutput, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	action := optionParam(params, "action", OwnActionGet)
	query := optionParam(params, "query", OwnQuerySummary)

	switch action {
	case OwnActionGet:
		return s.wallet(ctx, ac.PublicKey, query)

	case OwnActionSetSignature:
		id := stringParam(params, "expression_id")
		if id == "" {
			return nil, common.NewValidationError("expression_id required for set_signature")
		}
		return s.setSignature(ctx, ac.PublicKey, id)

	case OwnActionLookup:
		pk := stringParam(params, "public_key")
		if pk == "" {
			return nil, common.NewValidationError("public_key required for lookup")
		}
		return s.wallet(ctx, normalizeKey(pk), query)

	default:
		return nil, common.NewValidationError("Unknown action: " + action)
	}
}

func (s *OwnService) wallet(ctx context.Context, pk, query string) (*OwnOutput, error) {
	w, err := s.repos.Wallets(s.db).Get(ctx, pk)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("Wallet not found")
		}
		return nil, err
	}
	out := &OwnOutput{Wallet: walletView(w)}

	switch query {
	case OwnQueryFull:
		sig, err := s.signatureExpression(ctx, w)
		if err != nil {
			return nil, err
		}
		out.Wallet.SignatureExpression = sig

	case OwnQueryHistory:
		recent, _, err := s.repos.Expressions(s.db).ListByAuthor(ctx, pk, models.Page{Limit: HistoryLimit})
		if err != nil {
			return nil, err
		}
		out.Expressions = make([]HistoryEntry, 0, len(recent))
		for _, e := range recent {
			out.Expressions = append(out.Expressions, HistoryEntry{
				ExpressionID:   e.ID,
				ExpressionType: e.Type,
				Payload:        e.Payload,
				PayloadHash:    e.PayloadHash,
				LogIndex:       e.LogIndex,
				CreatedAt:      timex.FormatISO(e.CreatedAt),
			})
		}
	}
	return out, nil
}

// signatureExpression returns a typed nil when the wallet has none, so the
// key is still rendered as null.
func (s *OwnService) signatureExpression(ctx context.Context, w *models.Wallet) (*SignatureExpressionView, error) {
	if w.SignatureExpressionID == nil {
		return nil, nil
	}
	e, err := s.repos.Expressions(s.db).GetByID(ctx, *w.SignatureExpressionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return signatureView(e, s.baseURL), nil
}

func (s *OwnService) setSignature(ctx context.Context, pk, expressionID string) (*OwnOutput, error) {
	e, err := s.repos.Expressions(s.db).GetByID(ctx, expressionID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if e == nil || e.AuthorPubKey != pk {
		return nil, common.NewForbiddenError("Expression not owned by caller")
	}

	if err := s.repos.Wallets(s.db).SetSignatureExpression(ctx, pk, expressionID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("Wallet not found")
		}
		return nil, err
	}
	return s.wallet(ctx, pk, OwnQueryFull)
}
