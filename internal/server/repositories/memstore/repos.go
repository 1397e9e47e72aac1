package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/transfers"
)

type walletRepo struct {
	s    *Store
	inTx bool
}

func (r *walletRepo) Get(_ context.Context, pk string) (*models.Wallet, error) {
	defer r.s.lock(r.inTx)()
	w, ok := r.s.st.wallets[pk]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &w, nil
}

func (r *walletRepo) EnsureExists(_ context.Context, pk string) (bool, error) {
	defer r.s.lock(r.inTx)()
	if _, ok := r.s.st.wallets[pk]; ok {
		return false, nil
	}
	r.s.st.wallets[pk] = models.Wallet{PublicKey: pk, CreatedAt: r.s.stamp()}
	return true, nil
}

func (r *walletRepo) NextIndex(_ context.Context, pk string, c models.Counter) (int64, error) {
	defer r.s.lock(r.inTx)()
	if r.s.BeforeNextIndex != nil {
		if err := r.s.BeforeNextIndex(); err != nil {
			return 0, err
		}
	}
	w, ok := r.s.st.wallets[pk]
	if !ok {
		return 0, common.ErrorNotFound
	}
	var idx int64
	switch c {
	case models.CounterTransfersSent:
		w.TransferSentCount++
		idx = w.TransferSentCount
	case models.CounterTransfersReceived:
		w.TransferReceivedCount++
		idx = w.TransferReceivedCount
	default:
		w.ExpressionCount++
		idx = w.ExpressionCount
	}
	r.s.st.wallets[pk] = w
	return idx, nil
}

func (r *walletRepo) SetSignatureExpression(_ context.Context, pk, id string) error {
	defer r.s.lock(r.inTx)()
	w, ok := r.s.st.wallets[pk]
	if !ok {
		return common.ErrorNotFound
	}
	w.SignatureExpressionID = &id
	r.s.st.wallets[pk] = w
	return nil
}

type expressionRepo struct {
	s    *Store
	inTx bool
}

func (r *expressionRepo) Create(_ context.Context, e *models.Expression) error {
	defer r.s.lock(r.inTx)()
	if _, ok := r.s.st.expressions[e.ID]; ok {
		return common.ErrConflict
	}
	for _, x := range r.s.st.expressions {
		if x.AuthorPubKey == e.AuthorPubKey && x.LogIndex == e.LogIndex {
			return common.ErrConflict
		}
	}
	e.CreatedAt = r.s.stamp()
	c := *e
	c.Receipt = nil
	r.s.st.expressions[e.ID] = c
	return nil
}

func (r *expressionRepo) AttachReceipt(_ context.Context, id string, rc *models.Receipt) error {
	defer r.s.lock(r.inTx)()
	e, ok := r.s.st.expressions[id]
	if !ok || e.Receipt != nil {
		return common.ErrReceiptExists
	}
	cp := *rc
	e.Receipt = &cp
	r.s.st.expressions[id] = e
	return nil
}

func (r *expressionRepo) GetByID(_ context.Context, id string) (*models.Expression, error) {
	defer r.s.lock(r.inTx)()
	e, ok := r.s.st.expressions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &e, nil
}

func (r *expressionRepo) ListByAuthor(_ context.Context, author string, page models.Page) ([]*models.Expression, int64, error) {
	defer r.s.lock(r.inTx)()
	var all []*models.Expression
	for _, e := range r.s.st.expressions {
		if e.AuthorPubKey == author {
			e := e
			all = append(all, &e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if page.Ascending {
			return all[i].LogIndex < all[j].LogIndex
		}
		return all[i].LogIndex > all[j].LogIndex
	})
	return paginate(all, page), int64(len(all)), nil
}

func (r *expressionRepo) FindGlyphByHashPrefix(_ context.Context, prefix string) (*models.Expression, error) {
	defer r.s.lock(r.inTx)()
	var best *models.Expression
	for _, e := range r.s.st.expressions {
		if e.Type != "glyph" || e.GlyphHash == nil || !strings.HasPrefix(*e.GlyphHash, prefix) {
			continue
		}
		if best == nil || e.CreatedAt.Before(best.CreatedAt) ||
			(e.CreatedAt.Equal(best.CreatedAt) && e.ID < best.ID) {
			e := e
			best = &e
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	return best, nil
}

type transferRepo struct {
	s    *Store
	inTx bool
}

func (r *transferRepo) Create(_ context.Context, t *models.Transfer) error {
	defer r.s.lock(r.inTx)()
	if _, ok := r.s.st.transfers[t.ID]; ok {
		return common.ErrConflict
	}
	for _, x := range r.s.st.transfers {
		if x.From == t.From && x.SenderLogIndex == t.SenderLogIndex {
			return common.ErrConflict
		}
		if t.RecipientLogIndex != nil && x.RecipientLogIndex != nil &&
			x.To == t.To && *x.RecipientLogIndex == *t.RecipientLogIndex {
			return common.ErrConflict
		}
	}
	t.CreatedAt = r.s.stamp()
	c := *t
	c.Receipt = nil
	r.s.st.transfers[t.ID] = c
	return nil
}

func (r *transferRepo) AttachReceipt(_ context.Context, id string, rc *models.Receipt) error {
	defer r.s.lock(r.inTx)()
	t, ok := r.s.st.transfers[id]
	if !ok || t.Receipt != nil {
		return common.ErrReceiptExists
	}
	cp := *rc
	t.Receipt = &cp
	t.WitnessStatus = models.WitnessWitnessed
	r.s.st.transfers[id] = t
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*models.Transfer, error) {
	defer r.s.lock(r.inTx)()
	t, ok := r.s.st.transfers[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *transferRepo) List(_ context.Context, f transfers.Filter, page models.Page) ([]*models.Transfer, int64, error) {
	defer r.s.lock(r.inTx)()
	var all []*models.Transfer
	for _, t := range r.s.st.transfers {
		if (f.From != "" && t.From != f.From) || (f.To != "" && t.To != f.To) {
			continue
		}
		t := t
		all = append(all, &t)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, page), int64(len(all)), nil
}

type nonceRepo struct {
	s    *Store
	inTx bool
}

func (r *nonceRepo) Exists(_ context.Context, pk, nonce string) (bool, error) {
	defer r.s.lock(r.inTx)()
	_, ok := r.s.st.nonces[pk+":"+nonce]
	return ok, nil
}

func (r *nonceRepo) Insert(_ context.Context, pk, nonce string, at time.Time) error {
	defer r.s.lock(r.inTx)()
	k := pk + ":" + nonce
	if _, ok := r.s.st.nonces[k]; ok {
		return common.ErrNonceExists
	}
	r.s.st.nonces[k] = at
	return nil
}

func (r *nonceRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	defer r.s.lock(r.inTx)()
	var n int64
	for k, at := range r.s.st.nonces {
		if at.Before(cutoff) {
			delete(r.s.st.nonces, k)
			n++
		}
	}
	return n, nil
}

func paginate[T any](all []T, page models.Page) []T {
	if page.Offset >= len(all) {
		return nil
	}
	end := len(all)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return all[page.Offset:end]
}
