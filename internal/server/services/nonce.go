package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
)

// NonceService stores consumed nonces for the envelope verifier and prunes
// them once they are older than the retention period. Retention must be at
// least the timestamp tolerance, otherwise a nonce could be forgotten while
// its request is still acceptable.
type NonceService struct {
	db        dbx.DBTX
	repos     repomanager.RepositoryManager
	retention time.Duration
	timeout   storeTimeout
	logger    logging.Logger
}

func NewNonceService(db dbx.DBTX, repos repomanager.RepositoryManager, retention, timeout time.Duration, logger logging.Logger) *NonceService {
	return &NonceService{
		db:        db,
		repos:     repos,
		retention: retention,
		timeout:   storeTimeout(timeout),
		logger:    logger.With("service", "nonces"),
	}
}

func (s *NonceService) Seen(ctx context.Context, publicKey, nonce string) (bool, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()
	return s.repos.Nonces(s.db).Exists(ctx, publicKey, nonce)
}

func (s *NonceService) Record(ctx context.Context, publicKey, nonce string, at time.Time) error {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()
	return s.repos.Nonces(s.db).Insert(ctx, publicKey, nonce, at)
}

// Sweep deletes nonces used before now minus the retention period.
func (s *NonceService) Sweep(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.timeout.ctx(ctx)
	defer cancel()
	return s.repos.Nonces(s.db).DeleteOlderThan(ctx, now.Add(-s.retention))
}

// RunSweeper calls Sweep every interval until ctx is done. Failures are
// logged and the next tick tries again.
func (s *NonceService) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Sweep(ctx, now)
			if err != nil {
				s.logger.Error(ctx, "nonce sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug(ctx, "nonces swept", "count", n)
			}
		}
	}
}
