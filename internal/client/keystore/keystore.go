// Package keystore keeps the agent's Ed25519 seed on disk, sealed under a
// passphrase (argon2id + AES-256-GCM).
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/filex"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

const FormatVersion = 1

var (
	ErrKeyFileExists   = errors.New("key file already exists")
	ErrUnsupported     = errors.New("unsupported key file version")
	ErrPublicKeyChange = errors.New("key file public key does not match the sealed seed")
)

// KeyFile is the on-disk JSON document. PublicKey is stored in the clear so
// the agent can show its identity without the passphrase.
type KeyFile struct {
	Version   int                `json:"version"`
	PublicKey string             `json:"public_key"`
	CreatedAt string             `json:"created_at"`
	Sealed    *cryptox.SealedKey `json:"sealed_key"`
}

// Create seals seed under passphrase and writes it to path with owner-only
// permissions. An existing file is never overwritten.
func Create(path string, seed, passphrase []byte) (*KeyFile, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyFileExists, path)
	}

	pub, err := cryptox.DerivePublicKey(seed)
	if err != nil {
		return nil, err
	}
	sealed, err := cryptox.SealSeed(seed, passphrase)
	if err != nil {
		return nil, err
	}

	kf := &KeyFile{
		Version:   FormatVersion,
		PublicKey: cryptox.EncodeHex(pub),
		CreatedAt: timex.FormatISO(time.Now()),
		Sealed:    sealed,
	}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return nil, err
	}
	return kf, nil
}

func Load(path string) (*KeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf KeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != FormatVersion || kf.Sealed == nil {
		return nil, ErrUnsupported
	}
	return &kf, nil
}

// Open decrypts the seed. The caller should wipe it when done.
func (k *KeyFile) Open(passphrase []byte) ([]byte, error) {
	seed, err := cryptox.OpenSeed(k.Sealed, passphrase)
	if err != nil {
		return nil, err
	}
	pub, err := cryptox.DerivePublicKey(seed)
	if err != nil {
		return nil, err
	}
	if cryptox.EncodeHex(pub) != k.PublicKey {
		return nil, ErrPublicKeyChange
	}
	return seed, nil
}
