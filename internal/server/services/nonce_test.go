package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ auth.NonceLedger = (*NonceService)(nil)

func newNonceService(t *testing.T) *NonceService {
	t.Helper()
	logger, err := logging.New("text", io.Discard)
	require.NoError(t, err)
	return NewNonceService(nil, memstore.New(), 5*time.Minute, time.Second, logger)
}

func TestNonceService_RecordAndSeen(t *testing.T) {
	s := newNonceService(t)
	ctx := context.Background()
	now := time.Now()

	seen, err := s.Seen(ctx, alice, "n1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Record(ctx, alice, "n1", now))
	seen, err = s.Seen(ctx, alice, "n1")
	require.NoError(t, err)
	assert.True(t, seen)

	err = s.Record(ctx, alice, "n1", now)
	assert.True(t, errors.Is(err, common.ErrNonceExists))

	require.NoError(t, s.Record(ctx, bob, "n1", now))
}

func TestNonceService_Sweep(t *testing.T) {
	s := newNonceService(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, alice, "old", now.Add(-10*time.Minute)))
	require.NoError(t, s.Record(ctx, alice, "fresh", now.Add(-time.Minute)))

	n, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	seen, err := s.Seen(ctx, alice, "old")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = s.Seen(ctx, alice, "fresh")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNonceService_RunSweeperStopsOnCancel(t *testing.T) {
	s := newNonceService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNonceService_ReplayAfterSweepWithFutureTimestamp(t *testing.T) {
	logger, err := logging.New("text", io.Discard)
	require.NoError(t, err)

	const tolerance = 2 * time.Minute
	t0 := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	s := NewNonceService(nil, memstore.New(), tolerance, time.Second, logger)
	v := auth.NewVerifier(s, auth.WithTolerance(tolerance), auth.WithClock(func() time.Time { return now }))

	seed, _, err := cryptox.GenerateKey()
	require.NoError(t, err)
	env, err := auth.SignEnvelope("own", map[string]any{"action": "get"}, seed,
		timex.FormatISO(t0.Add(119*time.Second)), "0123456789abcdef01234567")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = v.Verify(ctx, env)
	require.NoError(t, err)

	now = t0.Add(tolerance + time.Second)
	n, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "nonce of a still valid envelope must survive the sweep")

	_, err = v.Verify(ctx, env)
	var pe *common.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, common.CodeNonceReused, pe.Code)
}
