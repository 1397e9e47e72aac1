package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{name: "lower", in: "0aff", want: []byte{0x0a, 0xff}},
		{name: "upper", in: "0AFF", want: []byte{0x0a, 0xff}},
		{name: "mixed", in: "0aFf", want: []byte{0x0a, 0xff}},
		{name: "empty", in: "", want: []byte{}},
		{name: "odd length", in: "abc", wantErr: true},
		{name: "non hex", in: "zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHexN_Length(t *testing.T) {
	_, err := DecodeHexN(strings.Repeat("a", 62), PublicKeySize)
	assert.ErrorIs(t, err, ErrInvalidHex)

	b, err := DecodeHexN(strings.Repeat("A", 64), PublicKeySize)
	require.NoError(t, err)
	assert.Len(t, b, PublicKeySize)
}

func TestEncodeHex_Lowercase(t *testing.T) {
	assert.Equal(t, "0aff", EncodeHex([]byte{0x0a, 0xff}))
}

func TestSignVerify_RoundTrip(t *testing.T) {
	seed, pub, err := GenerateKey()
	require.NoError(t, err)

	derived, err := DerivePublicKey(seed)
	require.NoError(t, err)
	assert.Equal(t, pub, derived)

	digest, err := Digest(map[string]any{"tool": "express", "params": map[string]any{"a": 1}})
	require.NoError(t, err)

	sig, err := Sign(digest, seed)
	require.NoError(t, err)
	assert.Len(t, sig, SignatureSize)
	assert.True(t, Verify(sig, digest, pub))
}

func TestVerify_FailsOnTamper(t *testing.T) {
	seed, pub, err := GenerateKey()
	require.NoError(t, err)

	digest, err := Digest(map[string]any{"n": 1})
	require.NoError(t, err)
	sig, err := Sign(digest, seed)
	require.NoError(t, err)

	other, err := Digest(map[string]any{"n": 2})
	require.NoError(t, err)
	assert.False(t, Verify(sig, other, pub), "different message")

	flipped := append([]byte(nil), sig...)
	flipped[0] ^= 0x01
	assert.False(t, Verify(flipped, digest, pub), "flipped signature bit")

	_, otherPub, err := GenerateKey()
	require.NoError(t, err)
	assert.False(t, Verify(sig, digest, otherPub), "different key")
}

func TestVerify_MalformedInputsAreFalse(t *testing.T) {
	assert.False(t, Verify([]byte{1, 2}, []byte("d"), make([]byte, PublicKeySize)))
	assert.False(t, Verify(make([]byte, SignatureSize), []byte("d"), []byte{1}))
}

func TestSign_RejectsBadSeed(t *testing.T) {
	_, err := Sign([]byte("d"), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSeedLength)

	_, err = DerivePublicKey(nil)
	assert.ErrorIs(t, err, ErrInvalidSeedLength)
}

func TestSignValue_VerifyValue(t *testing.T) {
	seed, pub, err := GenerateKey()
	require.NoError(t, err)

	body := map[string]any{"b": "2", "a": 1}
	sig, err := SignValue(body, seed)
	require.NoError(t, err)

	ok, err := VerifyValue(map[string]any{"a": 1, "b": "2"}, sig, EncodeHex(pub))
	require.NoError(t, err)
	assert.True(t, ok, "key order must not matter")

	ok, err = VerifyValue(body, strings.ToUpper(sig), strings.ToUpper(EncodeHex(pub)))
	require.NoError(t, err)
	assert.True(t, ok, "hex input is case-insensitive")

	_, err = VerifyValue(body, sig, "xyz")
	assert.ErrorIs(t, err, ErrInvalidHex)
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
}
