package transfers

import (
	"context"

	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

// Filter selects transfers by sender, recipient or both. At least one must
// be set.
type Filter struct {
	From string
	To   string
}

type Repository interface {
	Create(ctx context.Context, t *models.Transfer) error
	// AttachReceipt stores the receipt and marks the transfer witnessed.
	AttachReceipt(ctx context.Context, id string, r *models.Receipt) error
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	List(ctx context.Context, f Filter, page models.Page) ([]*models.Transfer, int64, error)
}
