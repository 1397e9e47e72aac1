// Package cryptox wraps the primitives the ledger relies on: Ed25519 over
// SHA-256 digests of canonical JSON, strict hex codecs, and passphrase
// sealing of agent key files.
package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zeroledger/internal/canonjson"
)

const (
	// SeedSize is the length of an Ed25519 private key seed in bytes.
	SeedSize = ed25519.SeedSize
	// PublicKeySize is the length of an Ed25519 public key in bytes.
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the length of an Ed25519 signature in bytes.
	SignatureSize = ed25519.SignatureSize
)

var (
	ErrInvalidHex        = errors.New("invalid hex")
	ErrInvalidKeyLength  = errors.New("invalid key length")
	ErrInvalidSeedLength = errors.New("invalid private key length")
)

// DecodeHex accepts upper or lower case hex and rejects odd lengths and
// non-hex characters with ErrInvalidHex.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length", ErrInvalidHex)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return b, nil
}

// DecodeHexN decodes s and requires exactly n bytes.
func DecodeHexN(s string, n int) ([]byte, error) {
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidHex, n, len(b))
	}
	return b, nil
}

// EncodeHex always produces lowercase output.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// SHA256Hex returns the lowercase hex SHA-256 of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Digest canonicalizes v and returns its SHA-256 digest. This is the value
// that gets signed, never the raw JSON text.
func Digest(v any) ([]byte, error) {
	b, err := canonjson.Marshal(v)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// GenerateKey returns a fresh seed and its public key.
func GenerateKey() (seed, pub []byte, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv.Seed(), pub, nil
}

// DerivePublicKey returns the public key for a 32-byte seed.
func DerivePublicKey(seed []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeedLength
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return []byte(priv.Public().(ed25519.PublicKey)), nil
}

// Sign signs digest with the key derived from seed.
func Sign(digest, seed []byte) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeedLength
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), digest), nil
}

// Verify reports whether sig is a valid signature of digest by pub.
// Malformed inputs verify as false rather than failing.
func Verify(sig, digest, pub []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
}

// SignValue canonicalizes v, digests it and returns the hex signature.
func SignValue(v any, seed []byte) (string, error) {
	digest, err := Digest(v)
	if err != nil {
		return "", err
	}
	sig, err := Sign(digest, seed)
	if err != nil {
		return "", err
	}
	return EncodeHex(sig), nil
}

// VerifyValue checks a hex signature over the canonical digest of v against a
// hex public key.
func VerifyValue(v any, sigHex, pubHex string) (bool, error) {
	pub, err := DecodeHexN(pubHex, PublicKeySize)
	if err != nil {
		return false, err
	}
	sig, err := DecodeHexN(sigHex, SignatureSize)
	if err != nil {
		return false, err
	}
	digest, err := Digest(v)
	if err != nil {
		return false, err
	}
	return Verify(sig, digest, pub), nil
}
