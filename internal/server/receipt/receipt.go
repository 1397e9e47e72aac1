// Package receipt countersigns ledger records with the server key.
//
// A receipt body is a small JSON object naming the record, its payload hash,
// the log indices it was given and the signing time. The body is
// canonicalized, hashed with SHA-256 and signed with Ed25519, the same way
// agents sign their requests.
package receipt

import (
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

type Signer struct {
	seed   []byte
	pubHex string
	now    func() time.Time
}

func NewSigner(seed []byte, now func() time.Time) (*Signer, error) {
	pub, err := cryptox.DerivePublicKey(seed)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	s := &Signer{seed: append([]byte(nil), seed...), pubHex: cryptox.EncodeHex(pub), now: now}
	return s, nil
}

// NewSignerFromHex accepts the 64-hex-character seed from configuration.
func NewSignerFromHex(seedHex string, now func() time.Time) (*Signer, error) {
	seed, err := cryptox.DecodeHexN(seedHex, cryptox.SeedSize)
	if err != nil {
		return nil, err
	}
	return NewSigner(seed, now)
}

func (s *Signer) PublicKeyHex() string {
	return s.pubHex
}

// ExpressionBody is the signed receipt body of an expression.
func ExpressionBody(id, payloadHash string, logIndex int64, timestamp string) map[string]any {
	return map[string]any{
		"expression_id": id,
		"payload_hash":  payloadHash,
		"log_index":     logIndex,
		"timestamp":     timestamp,
	}
}

// TransferBody is the signed receipt body of a transfer. A nil
// recipientIndex is encoded as JSON null.
func TransferBody(id, payloadHash string, senderIndex int64, recipientIndex *int64, timestamp string) map[string]any {
	var ri any
	if recipientIndex != nil {
		ri = *recipientIndex
	}
	return map[string]any{
		"transfer_id":         id,
		"payload_hash":        payloadHash,
		"sender_log_index":    senderIndex,
		"recipient_log_index": ri,
		"timestamp":           timestamp,
	}
}

// SignExpression returns the receipt for an expression. The returned
// Timestamp is exactly the string inside the signed body.
func (s *Signer) SignExpression(id, payloadHash string, logIndex int64) (*models.Receipt, error) {
	ts := timex.FormatISO(s.now())
	return s.sign(ExpressionBody(id, payloadHash, logIndex, ts), ts)
}

func (s *Signer) SignTransfer(id, payloadHash string, senderIndex int64, recipientIndex *int64) (*models.Receipt, error) {
	ts := timex.FormatISO(s.now())
	return s.sign(TransferBody(id, payloadHash, senderIndex, recipientIndex, ts), ts)
}

func (s *Signer) sign(body map[string]any, ts string) (*models.Receipt, error) {
	sig, err := cryptox.SignValue(body, s.seed)
	if err != nil {
		return nil, err
	}
	return &models.Receipt{Signature: sig, Timestamp: ts}, nil
}

// Verify checks a receipt signature over body against a hex server key.
func Verify(serverPubHex string, body map[string]any, sigHex string) (bool, error) {
	return cryptox.VerifyValue(body, sigHex, serverPubHex)
}
