package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"nonce", 12},
		{"seed", 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := MakeRandHexString(tt.size)
			require.NoError(t, err)
			assert.Len(t, s, 2*tt.size)
			assert.Regexp(t, `^[0-9a-f]*$`, s)

			raw, err := hex.DecodeString(s)
			require.NoError(t, err)
			assert.Len(t, raw, tt.size)
		})
	}
}

func TestMakeRandHexString_NoRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		s, err := MakeRandHexString(12)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup, "nonce %s repeated", s)
		seen[s] = struct{}{}
	}
}

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(16)
	b := GenerateRandByteArray(16)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.Empty(t, GenerateRandByteArray(0))
}

func TestWipeByteArray(t *testing.T) {
	seed := GenerateRandByteArray(32)
	alias := seed[8:16]

	WipeByteArray(seed)

	assert.Equal(t, make([]byte, 32), seed)
	assert.Equal(t, make([]byte, 8), alias)
	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
