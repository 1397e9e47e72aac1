package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"golang.org/x/crypto/argon2"
)

var ErrDecryptFailed = errors.New("wrong passphrase or corrupted key file")

// SealedKey is an Ed25519 seed encrypted under a passphrase-derived key.
type SealedKey struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// DeriveMasterKey stretches a passphrase into a 32-byte AES key (argon2id).
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// SealSeed encrypts seed with AES-256-GCM under a key derived from
// passphrase. A fresh salt and nonce are generated on every call.
func SealSeed(seed, passphrase []byte) (*SealedKey, error) {
	salt := common.GenerateRandByteArray(16)
	key := DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return &SealedKey{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aesgcm.Seal(nil, nonce, seed, nil),
	}, nil
}

// OpenSeed reverses SealSeed.
func OpenSeed(sk *SealedKey, passphrase []byte) ([]byte, error) {
	key := DeriveMasterKey(passphrase, sk.Salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	seed, err := aesgcm.Open(nil, sk.Nonce, sk.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeedLength
	}
	return seed, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
