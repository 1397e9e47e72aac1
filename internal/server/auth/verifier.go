package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// DefaultTolerance is the accepted clock drift between caller and server.
const DefaultTolerance = 120 * time.Second

// NonceLedger remembers consumed nonces per principal. Record must fail with
// common.ErrNonceExists when the pair is already present, including when a
// concurrent request recorded it first.
type NonceLedger interface {
	Seen(ctx context.Context, publicKey, nonce string) (bool, error)
	Record(ctx context.Context, publicKey, nonce string, at time.Time) error
}

// Verifier authenticates signed envelopes and consumes their nonces.
type Verifier struct {
	nonces    NonceLedger
	tolerance time.Duration
	now       func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithTolerance overrides DefaultTolerance.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// NewVerifier returns a Verifier backed by nonces with DefaultTolerance.
func NewVerifier(nonces NonceLedger, opts ...Option) *Verifier {
	v := &Verifier{nonces: nonces, tolerance: DefaultTolerance, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify runs the gates in order and stops at the first failure: format,
// timestamp window, nonce replay, signature, nonce recording. The nonce is
// only consumed by a request whose signature checked out.
func (v *Verifier) Verify(ctx context.Context, env *Envelope) (*Context, error) {
	if env == nil {
		return nil, errMissingToolOrParams
	}
	if err := validate(env); err != nil {
		return nil, err
	}
	a := env.Auth

	now := v.now()
	ts, _ := timex.ParseISO(a.Timestamp)
	drift := now.UnixMilli() - ts.UnixMilli()
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance.Milliseconds() {
		return nil, common.NewAuthError(common.CodeTimestampExpired, "Request timestamp out of range")
	}

	pk := strings.ToLower(a.PublicKey)
	nonce := strings.ToLower(a.Nonce)

	seen, err := v.nonces.Seen(ctx, pk, nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce lookup: %w", err)
	}
	if seen {
		return nil, nonceReused()
	}

	// A message that cannot be canonicalized cannot carry a valid signature.
	ok, err := cryptox.VerifyValue(Message(env.Tool, env.Params, a.Timestamp, a.Nonce), a.Signature, a.PublicKey)
	if err != nil || !ok {
		return nil, common.NewAuthError(common.CodeInvalidSignature, "Signature verification failed")
	}

	// A timestamp ahead of the server clock keeps the envelope valid until
	// ts+tolerance, so the nonce is aged from whichever is later.
	usedAt := now
	if ts.After(now) {
		usedAt = ts
	}
	if err := v.nonces.Record(ctx, pk, nonce, usedAt); err != nil {
		if errors.Is(err, common.ErrNonceExists) {
			return nil, nonceReused()
		}
		return nil, fmt.Errorf("nonce record: %w", err)
	}

	return &Context{PublicKey: pk, Signature: a.Signature, Timestamp: a.Timestamp}, nil
}

func nonceReused() error {
	return common.NewAuthError(common.CodeNonceReused, "Nonce already used")
}
