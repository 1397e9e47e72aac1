package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memNonces struct {
	mu      sync.Mutex
	used    map[string]time.Time
	seenErr error
	recErr  error
	seen    int
}

func newMemNonces() *memNonces {
	return &memNonces{used: map[string]time.Time{}}
}

func (m *memNonces) Seen(_ context.Context, pk, nonce string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen++
	if m.seenErr != nil {
		return false, m.seenErr
	}
	_, ok := m.used[pk+":"+nonce]
	return ok, nil
}

func (m *memNonces) Record(_ context.Context, pk, nonce string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recErr != nil {
		return m.recErr
	}
	k := pk + ":" + nonce
	if _, ok := m.used[k]; ok {
		return common.ErrNonceExists
	}
	m.used[k] = at
	return nil
}

var fixedNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, _, err := cryptox.GenerateKey()
	require.NoError(t, err)
	return seed
}

func signedAt(t *testing.T, seed []byte, at time.Time, nonce string) *Envelope {
	t.Helper()
	env, err := SignEnvelope("express", map[string]any{
		"expression_type": "claim",
		"payload":         map[string]any{"subject": "s", "predicate": "p"},
	}, seed, timex.FormatISO(at), nonce)
	require.NoError(t, err)
	return env
}

func codeOf(t *testing.T, err error) common.Code {
	t.Helper()
	var pe *common.Error
	require.True(t, errors.As(err, &pe), "expected protocol error, got %v", err)
	return pe.Code
}

func TestVerify_Accepts(t *testing.T) {
	seed := testSeed(t)
	nonces := newMemNonces()
	v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))

	env := signedAt(t, seed, fixedNow, "0123456789ABCDEF01234567")
	ac, err := v.Verify(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, env.Auth.PublicKey, ac.PublicKey)
	assert.Equal(t, env.Auth.Signature, ac.Signature)
	assert.Equal(t, env.Auth.Timestamp, ac.Timestamp)

	_, recorded := nonces.used[ac.PublicKey+":0123456789abcdef01234567"]
	assert.True(t, recorded, "nonce stored lowercase")
}

func TestVerify_UppercasePublicKeyIsNormalised(t *testing.T) {
	seed := testSeed(t)
	v := NewVerifier(newMemNonces(), WithClock(func() time.Time { return fixedNow }))

	env := signedAt(t, seed, fixedNow, "aaaaaaaaaaaaaaaaaaaaaaaa")
	lower := env.Auth.PublicKey
	env.Auth.PublicKey = strings.ToUpper(lower)

	ac, err := v.Verify(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, lower, ac.PublicKey)
}

func TestVerify_TimestampBoundary(t *testing.T) {
	seed := testSeed(t)

	tests := []struct {
		name   string
		offset time.Duration
		ok     bool
	}{
		{"exactly tolerance in the past", -120000 * time.Millisecond, true},
		{"exactly tolerance in the future", 120000 * time.Millisecond, true},
		{"one ms past", -120001 * time.Millisecond, false},
		{"one ms ahead", 120001 * time.Millisecond, false},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nonces := newMemNonces()
			v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))
			nonce := strings.Repeat(string("abcd"[i]), 24)

			_, err := v.Verify(context.Background(), signedAt(t, seed, fixedNow.Add(tt.offset), nonce))
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, common.CodeTimestampExpired, codeOf(t, err))
			assert.Zero(t, nonces.seen, "nonce store must not be consulted")
		})
	}
}

func TestVerify_NonceAgedFromLaterOfClockAndTimestamp(t *testing.T) {
	seed := testSeed(t)
	nonces := newMemNonces()
	v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))

	ahead := signedAt(t, seed, fixedNow.Add(119*time.Second), "aaaaaaaaaaaaaaaaaaaaaaaa")
	ac, err := v.Verify(context.Background(), ahead)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(119*time.Second), nonces.used[ac.PublicKey+":aaaaaaaaaaaaaaaaaaaaaaaa"])

	behind := signedAt(t, seed, fixedNow.Add(-30*time.Second), "bbbbbbbbbbbbbbbbbbbbbbbb")
	ac, err = v.Verify(context.Background(), behind)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, nonces.used[ac.PublicKey+":bbbbbbbbbbbbbbbbbbbbbbbb"])
}

func TestVerify_Replay(t *testing.T) {
	seed := testSeed(t)
	v := NewVerifier(newMemNonces(), WithClock(func() time.Time { return fixedNow }))
	env := signedAt(t, seed, fixedNow, "0123456789abcdef01234567")

	_, err := v.Verify(context.Background(), env)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, common.CodeNonceReused, codeOf(t, err))
}

func TestVerify_ConcurrentReplayOnlyOneWins(t *testing.T) {
	seed := testSeed(t)
	v := NewVerifier(newMemNonces(), WithClock(func() time.Time { return fixedNow }))
	env := signedAt(t, seed, fixedNow, "0123456789abcdef01234567")

	const n = 32
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Verify(context.Background(), env)
			if err == nil {
				ok.Add(1)
				return
			}
			var pe *common.Error
			if errors.As(err, &pe) && pe.Code == common.CodeNonceReused {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), rejected.Load())
}

func TestVerify_TamperedParams(t *testing.T) {
	seed := testSeed(t)
	nonces := newMemNonces()
	v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))

	env := signedAt(t, seed, fixedNow, "0123456789abcdef01234567")
	env.Params["expression_type"] = "raw"

	_, err := v.Verify(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, common.CodeInvalidSignature, codeOf(t, err))
	assert.Empty(t, nonces.used, "rejected request must not consume the nonce")
}

func TestVerify_WrongKey(t *testing.T) {
	seed := testSeed(t)
	other := testSeed(t)
	v := NewVerifier(newMemNonces(), WithClock(func() time.Time { return fixedNow }))

	env := signedAt(t, seed, fixedNow, "0123456789abcdef01234567")
	pub, err := cryptox.DerivePublicKey(other)
	require.NoError(t, err)
	env.Auth.PublicKey = cryptox.EncodeHex(pub)

	_, err = v.Verify(context.Background(), env)
	assert.Equal(t, common.CodeInvalidSignature, codeOf(t, err))
}

func TestVerify_FormatGate(t *testing.T) {
	seed := testSeed(t)

	tests := []struct {
		name   string
		mutate func(e *Envelope)
		msg    string
	}{
		{"no auth", func(e *Envelope) { e.Auth = nil }, "auth envelope is required"},
		{"short key", func(e *Envelope) { e.Auth.PublicKey = e.Auth.PublicKey[:63] }, "public_key must be 64 hex characters"},
		{"empty key", func(e *Envelope) { e.Auth.PublicKey = "" }, "public_key is required"},
		{"bad timestamp", func(e *Envelope) { e.Auth.Timestamp = "yesterday" }, "timestamp must be valid ISO 8601"},
		{"date only", func(e *Envelope) { e.Auth.Timestamp = "2026-02-01" }, "timestamp must be valid ISO 8601"},
		{"short nonce", func(e *Envelope) { e.Auth.Nonce = "abc" }, "nonce must be 24 hex characters"},
		{"non-hex nonce", func(e *Envelope) { e.Auth.Nonce = strings.Repeat("z", 24) }, "nonce must be 24 hex characters"},
		{"short signature", func(e *Envelope) { e.Auth.Signature = e.Auth.Signature[:126] }, "signature must be 128 hex characters"},
		{"empty tool", func(e *Envelope) { e.Tool = "" }, "tool is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nonces := newMemNonces()
			v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))
			env := signedAt(t, seed, fixedNow, "0123456789abcdef01234567")
			tt.mutate(env)

			_, err := v.Verify(context.Background(), env)
			require.Error(t, err)
			var pe *common.Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, common.CodeInvalidRequest, pe.Code)
			assert.Equal(t, tt.msg, pe.Message)
			assert.Zero(t, nonces.seen)
		})
	}
}

func TestVerify_StoreErrorsAreNotProtocolErrors(t *testing.T) {
	seed := testSeed(t)

	nonces := newMemNonces()
	nonces.seenErr = errors.New("db down")
	v := NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))
	_, err := v.Verify(context.Background(), signedAt(t, seed, fixedNow, "0123456789abcdef01234567"))
	require.Error(t, err)
	_, internal := common.AsProtocolError(err)
	assert.True(t, internal)

	nonces = newMemNonces()
	nonces.recErr = errors.New("db down")
	v = NewVerifier(nonces, WithClock(func() time.Time { return fixedNow }))
	_, err = v.Verify(context.Background(), signedAt(t, seed, fixedNow, "0123456789abcdef01234567"))
	require.Error(t, err)
	_, internal = common.AsProtocolError(err)
	assert.True(t, internal)
}

func TestWithTolerance(t *testing.T) {
	seed := testSeed(t)
	v := NewVerifier(newMemNonces(), WithClock(func() time.Time { return fixedNow }), WithTolerance(time.Second))

	_, err := v.Verify(context.Background(), signedAt(t, seed, fixedNow.Add(-2*time.Second), "0123456789abcdef01234567"))
	assert.Equal(t, common.CodeTimestampExpired, codeOf(t, err))
}
