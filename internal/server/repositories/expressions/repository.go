package expressions

import (
	"context"

	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Expression) error
	AttachReceipt(ctx context.Context, id string, r *models.Receipt) error
	GetByID(ctx context.Context, id string) (*models.Expression, error)
	ListByAuthor(ctx context.Context, author string, page models.Page) ([]*models.Expression, int64, error)
	// FindGlyphByHashPrefix returns the earliest glyph whose data hash starts
	// with prefix.
	FindGlyphByHashPrefix(ctx context.Context, prefix string) (*models.Expression, error)
}
