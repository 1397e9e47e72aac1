package journal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberServerKey(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	old := newServerSigner(t)
	cur := newServerSigner(t)

	require.NoError(t, j.RememberServerKey(ctx, "key_1", strings.ToUpper(old.PublicKeyHex())))
	require.NoError(t, j.RememberServerKey(ctx, "key_1", old.PublicKeyHex()))
	require.NoError(t, j.RememberServerKey(ctx, "key_2", cur.PublicKeyHex()))

	err := j.RememberServerKey(ctx, "key_2", old.PublicKeyHex())
	assert.ErrorIs(t, err, ErrServerKeyChanged)

	keys, err := j.ServerKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"key_1": old.PublicKeyHex(), "key_2": cur.PublicKeyHex()}, keys)
}

func TestVerifyAny_SurvivesRotation(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	old := newServerSigner(t)
	cur := newServerSigner(t)

	e, err := j.RecordExpression(ctx, expressOutput(t, old, "expr_old", 3))
	require.NoError(t, err)

	id, ok := e.VerifyAny(map[string]string{"key_2": cur.PublicKeyHex()})
	assert.False(t, ok)
	assert.Empty(t, id)

	id, ok = e.VerifyAny(map[string]string{"key_1": old.PublicKeyHex(), "key_2": cur.PublicKeyHex()})
	assert.True(t, ok)
	assert.Equal(t, "key_1", id)
}

func TestServerKeys_DBErrorWrapped(t *testing.T) {
	j := openTestJournal(t)
	require.NoError(t, j.db.Close())

	_, err := j.ServerKeys(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list server keys")

	err = j.RememberServerKey(context.Background(), "k", "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get server key[k]")
}
