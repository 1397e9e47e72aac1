package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T, limits Limits) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, NewRedis(rdb, limits, time.Minute)
}

func requireRateLimited(t *testing.T, err error) {
	t.Helper()
	var pe *common.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, common.CodeRateLimited, pe.Code)
}

func TestRedis_AllowsUpToLimit(t *testing.T) {
	m, l := newMiniRedis(t, Limits{"transfer": 2})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	requireRateLimited(t, l.Allow(ctx, pk, "transfer"))

	k := redisKeyPrefix + pk + ":transfer"
	assert.Equal(t, time.Minute, m.TTL(k))
}

func TestRedis_WindowResetsAfterExpiry(t *testing.T) {
	m, l := newMiniRedis(t, Limits{"transfer": 2})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	requireRateLimited(t, l.Allow(ctx, pk, "transfer"))

	m.FastForward(time.Minute)

	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	requireRateLimited(t, l.Allow(ctx, pk, "transfer"))
}

func TestRedis_CounterWithoutTTLIsRepaired(t *testing.T) {
	m, l := newMiniRedis(t, Limits{"transfer": 2})
	ctx := context.Background()
	k := redisKeyPrefix + pk + ":transfer"

	// A counter left over without expiry, e.g. recreated after its window
	// lapsed between two commands.
	require.NoError(t, m.Set(k, "7"))
	require.Zero(t, m.TTL(k))

	requireRateLimited(t, l.Allow(ctx, pk, "transfer"))
	assert.Equal(t, time.Minute, m.TTL(k))

	m.FastForward(time.Minute)
	require.NoError(t, l.Allow(ctx, pk, "transfer"))
}

func TestRedis_KeysAreIndependent(t *testing.T) {
	_, l := newMiniRedis(t, Limits{"transfer": 1, "own": 1})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, pk, "transfer"))
	require.NoError(t, l.Allow(ctx, pk, "own"))
	require.NoError(t, l.Allow(ctx, "ff"+pk[2:], "transfer"))
	requireRateLimited(t, l.Allow(ctx, pk, "transfer"))
}

func TestRedis_UnknownToolSkipsBackend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedis(db, DefaultLimits(), time.Minute)

	require.NoError(t, l.Allow(context.Background(), pk, "bogus"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_BackendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewRedis(db, DefaultLimits(), time.Minute)
	k := redisKeyPrefix + pk + ":own"

	mock.ExpectEvalSha(incrWindow.Hash(), []string{k}, time.Minute.Milliseconds()).
		SetErr(errors.New("conn refused"))

	err := l.Allow(context.Background(), pk, "own")
	require.Error(t, err)
	_, internal := common.AsProtocolError(err)
	assert.True(t, internal)
	require.NoError(t, mock.ExpectationsWereMet())
}
