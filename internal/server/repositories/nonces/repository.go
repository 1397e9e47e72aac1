package nonces

import (
	"context"
	"time"
)

type Repository interface {
	Exists(ctx context.Context, publicKey, nonce string) (bool, error)
	// Insert records a consumed nonce. A pair that is already present yields
	// common.ErrNonceExists.
	Insert(ctx context.Context, publicKey, nonce string, usedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
