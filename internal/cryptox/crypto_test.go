package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if len(key1) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(key1))
	}
}

func TestDeriveMasterKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveMasterKey(password, []byte("salt-1"))
	key2 := DeriveMasterKey(password, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpenSeed_RoundTrip(t *testing.T) {
	seed, _, err := GenerateKey()
	require.NoError(t, err)

	sealed, err := SealSeed(seed, []byte("hunter2"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed.Ciphertext), string(seed))

	opened, err := OpenSeed(sealed, []byte("hunter2"))
	require.NoError(t, err)
	assert.Equal(t, seed, opened)
}

func TestOpenSeed_WrongPassphrase(t *testing.T) {
	seed, _, err := GenerateKey()
	require.NoError(t, err)

	sealed, err := SealSeed(seed, []byte("right"))
	require.NoError(t, err)

	_, err = OpenSeed(sealed, []byte("wrong"))
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestSealSeed_FreshSaltEachTime(t *testing.T) {
	seed, _, err := GenerateKey()
	require.NoError(t, err)

	a, err := SealSeed(seed, []byte("p"))
	require.NoError(t, err)
	b, err := SealSeed(seed, []byte("p"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}
