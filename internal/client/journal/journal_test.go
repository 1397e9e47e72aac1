package journal

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/server/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return j
}

func newServerSigner(t *testing.T) *receipt.Signer {
	t.Helper()
	seed, _, err := cryptox.GenerateKey()
	require.NoError(t, err)
	s, err := receipt.NewSigner(seed, nil)
	require.NoError(t, err)
	return s
}

func expressOutput(t *testing.T, s *receipt.Signer, id string, logIndex int64) map[string]any {
	t.Helper()
	rc, err := s.SignExpression(id, "sha256:aa", logIndex)
	require.NoError(t, err)
	return map[string]any{
		"expression_id": id,
		"payload_hash":  "sha256:aa",
		"receipt": map[string]any{
			"server_signature": rc.Signature,
			"server_timestamp": rc.Timestamp,
			"log_index":        json.Number(strconv.FormatInt(logIndex, 10)),
		},
	}
}

func TestRecordExpression_VerifiesAgainstServerKey(t *testing.T) {
	j := openTestJournal(t)
	s := newServerSigner(t)
	ctx := context.Background()

	e, err := j.RecordExpression(ctx, expressOutput(t, s, "expr_1", 1))
	require.NoError(t, err)
	assert.Equal(t, KindExpression, e.Kind)

	got, err := j.Get(ctx, "expr_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LogIndex)

	ok, err := got.Verify(s.PublicKeyHex())
	require.NoError(t, err)
	assert.True(t, ok)

	other := newServerSigner(t)
	ok, err = got.Verify(other.PublicKeyHex())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordTransfer_FloatNumbersAndNullRecipient(t *testing.T) {
	j := openTestJournal(t)
	s := newServerSigner(t)
	ctx := context.Background()

	rc, err := s.SignTransfer("tx_1", "sha256:bb", 4, nil)
	require.NoError(t, err)
	out := map[string]any{
		"transfer_id":  "tx_1",
		"payload_hash": "sha256:bb",
		"receipt": map[string]any{
			"server_signature":    rc.Signature,
			"server_timestamp":    rc.Timestamp,
			"sender_log_index":    float64(4),
			"recipient_log_index": nil,
		},
	}

	_, err = j.RecordTransfer(ctx, out)
	require.NoError(t, err)

	got, err := j.Get(ctx, "tx_1")
	require.NoError(t, err)
	assert.Equal(t, KindTransfer, got.Kind)
	assert.Nil(t, got.RecipientLogIndex)

	ok, err := got.Verify(s.PublicKeyHex())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecord_DuplicateIsRejected(t *testing.T) {
	j := openTestJournal(t)
	s := newServerSigner(t)
	ctx := context.Background()

	out := expressOutput(t, s, "expr_dup", 1)
	_, err := j.RecordExpression(ctx, out)
	require.NoError(t, err)
	_, err = j.RecordExpression(ctx, out)
	assert.ErrorIs(t, err, common.ErrReceiptExists)
}

func TestRecord_MissingReceipt(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.RecordExpression(context.Background(), map[string]any{"expression_id": "expr_x"})
	require.Error(t, err)
	_, err = j.RecordTransfer(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	j := openTestJournal(t)
	s := newServerSigner(t)
	ctx := context.Background()

	for _, id := range []string{"expr_a", "expr_b", "expr_c"} {
		_, err := j.RecordExpression(ctx, expressOutput(t, s, id, 1))
		require.NoError(t, err)
	}

	all, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "expr_c", all[0].RecordID)
	assert.Equal(t, "expr_a", all[2].RecordID)

	two, err := j.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestGet_NotFound(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
