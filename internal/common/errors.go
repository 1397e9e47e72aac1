// Package common defines shared constants and sentinel errors used across
// client and server layers of zeroledger. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrNonceExists = errors.New("nonce already recorded")
	ErrConflict    = errors.New("concurrent update conflict")

	// Receipts are written exactly once per record.
	ErrReceiptExists = errors.New("receipt already attached")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
)
