package wallets

import (
	"context"

	"github.com/dmitrijs2005/zeroledger/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, publicKey string) (*models.Wallet, error)
	// EnsureExists creates the wallet if it is missing and reports whether
	// this call created it.
	EnsureExists(ctx context.Context, publicKey string) (bool, error)
	// NextIndex atomically increments the counter and returns its new value.
	// It returns common.ErrorNotFound when the wallet does not exist.
	NextIndex(ctx context.Context, publicKey string, counter models.Counter) (int64, error)
	SetSignatureExpression(ctx context.Context, publicKey, expressionID string) error
}
