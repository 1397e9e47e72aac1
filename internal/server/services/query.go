package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/server/glyph"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/transfers"
)

// QueryService backs the public read-only HTTP endpoints.
type QueryService struct {
	db      dbx.DBTX
	repos   repomanager.RepositoryManager
	baseURL string
	timeout storeTimeout
}

func NewQueryService(db dbx.DBTX, repos repomanager.RepositoryManager, baseURL string, timeout time.Duration) *QueryService {
	return &QueryService{db: db, repos: repos, baseURL: baseURL, timeout: storeTimeout(timeout)}
}

func notFound(err error, msg string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NewNotFoundError(msg)
	}
	return err
}

func (s *QueryService) Expression(ctx context.Context, id string) (*ExpressionView, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	e, err := s.repos.Expressions(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Expression not found")
	}
	v := expressionView(e, true)
	return &v, nil
}

// Expressions lists an author's log. withAuthor adds the author fields to
// every entry.
func (s *QueryService) Expressions(ctx context.Context, author string, page models.Page, withAuthor bool) (*ExpressionList, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	list, total, err := s.repos.Expressions(s.db).ListByAuthor(ctx, normalizeKey(author), page)
	if err != nil {
		return nil, err
	}
	out := &ExpressionList{Data: make([]ExpressionView, 0, len(list)), Pagination: newPagination(total, page)}
	for _, e := range list {
		out.Data = append(out.Data, expressionView(e, withAuthor))
	}
	return out, nil
}

// Wallet always includes signature_expression, null when unset.
func (s *QueryService) Wallet(ctx context.Context, pk string) (*WalletView, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	w, err := s.repos.Wallets(s.db).Get(ctx, normalizeKey(pk))
	if err != nil {
		return nil, notFound(err, "Wallet not found")
	}
	v := walletView(w)

	var sig *SignatureExpressionView
	if w.SignatureExpressionID != nil {
		e, err := s.repos.Expressions(s.db).GetByID(ctx, *w.SignatureExpressionID)
		switch {
		case err == nil:
			sig = signatureView(e, s.baseURL)
		case !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}
	}
	v.SignatureExpression = sig
	return &v, nil
}

func (s *QueryService) Transfer(ctx context.Context, id string) (*TransferView, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	t, err := s.repos.Transfers(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Transfer not found")
	}
	v := transferView(t, true)
	return &v, nil
}

func (s *QueryService) Transfers(ctx context.Context, from, to string, page models.Page) (*TransferList, error) {
	if from == "" && to == "" {
		return nil, common.NewValidationError("from or to parameter is required")
	}
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	f := transfers.Filter{From: normalizeKey(from), To: normalizeKey(to)}
	list, total, err := s.repos.Transfers(s.db).List(ctx, f, page)
	if err != nil {
		return nil, err
	}
	out := &TransferList{Data: make([]TransferView, 0, len(list)), Pagination: newPagination(total, page)}
	for _, t := range list {
		out.Data = append(out.Data, transferView(t, false))
	}
	return out, nil
}

// GlyphSVG renders the earliest glyph whose hash starts with prefix.
func (s *QueryService) GlyphSVG(ctx context.Context, prefix string) (string, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()

	e, err := s.repos.Expressions(s.db).FindGlyphByHashPrefix(ctx, normalizeKey(prefix))
	if err != nil {
		return "", notFound(err, "Glyph not found")
	}
	data, ok := e.Payload["data"].(string)
	if !ok {
		return "", common.NewNotFoundError("Glyph not found")
	}
	return glyph.Render(data), nil
}
