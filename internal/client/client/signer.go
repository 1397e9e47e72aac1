package client

import (
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// NonceBytes is the number of random bytes in a request nonce (24 hex
// characters on the wire).
const NonceBytes = 12

type Signer struct {
	seed   []byte
	pubHex string
	now    func() time.Time
}

func NewSigner(seed []byte) (*Signer, error) {
	pub, err := cryptox.DerivePublicKey(seed)
	if err != nil {
		return nil, err
	}
	return &Signer{
		seed:   append([]byte(nil), seed...),
		pubHex: cryptox.EncodeHex(pub),
		now:    time.Now,
	}, nil
}

func (s *Signer) PublicKeyHex() string {
	return s.pubHex
}

// SetClockOffset shifts the signing clock by d, for agents whose local
// clock is known to drift from the server's.
func (s *Signer) SetClockOffset(d time.Duration) {
	s.now = func() time.Time { return time.Now().Add(d) }
}

// Sign builds a complete envelope for tool and params.
func (s *Signer) Sign(tool string, params map[string]any) (*auth.Envelope, error) {
	nonce, err := common.MakeRandHexString(NonceBytes)
	if err != nil {
		return nil, err
	}
	return auth.SignEnvelope(tool, params, s.seed, timex.FormatISO(s.now()), nonce)
}

// Wipe zeroes the private seed. The signer must not be used afterwards.
func (s *Signer) Wipe() {
	common.WipeByteArray(s.seed)
}
