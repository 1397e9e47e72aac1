package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// ErrServerKeyChanged means a key id was announced again with a different
// public key.
var ErrServerKeyChanged = errors.New("server key id re-announced with a different public key")

// RememberServerKey stores an announced server key. Keys are kept after
// rotation so older receipts still verify.
func (j *Journal) RememberServerKey(ctx context.Context, keyID, pubHex string) error {
	pubHex = strings.ToLower(pubHex)

	var known string
	err := j.db.QueryRowContext(ctx, `SELECT public_key FROM server_keys WHERE key_id = ?`, keyID).Scan(&known)
	switch {
	case err == nil:
		if known != pubHex {
			return fmt.Errorf("%w: %s", ErrServerKeyChanged, keyID)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to get server key[%s]: %w", keyID, err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO server_keys (key_id, public_key, first_seen) VALUES (?, ?, ?)
	`, keyID, pubHex, timex.FormatISO(j.now()))
	if err != nil {
		return fmt.Errorf("failed to set server key[%s]: %w", keyID, err)
	}
	return nil
}

// ServerKeys returns every remembered key as key id -> public key hex.
func (j *Journal) ServerKeys(ctx context.Context) (map[string]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT key_id, public_key FROM server_keys`)
	if err != nil {
		return nil, fmt.Errorf("failed to list server keys: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var id, pub string
		if err := rows.Scan(&id, &pub); err != nil {
			return nil, fmt.Errorf("failed to scan server key row: %w", err)
		}
		result[id] = pub
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate server key rows: %w", err)
	}
	return result, nil
}

// VerifyAny checks the entry against each key and returns the id of the
// first one that verifies.
func (e *Entry) VerifyAny(keys map[string]string) (string, bool) {
	for id, pub := range keys {
		if ok, err := e.Verify(pub); err == nil && ok {
			return id, true
		}
	}
	return "", false
}
