// Package models holds the persisted ledger entities.
package models

import "time"

// Wallet is the per-principal record. Counters only ever grow, and each one
// equals the highest log index handed out for its record kind.
type Wallet struct {
	PublicKey             string
	SignatureExpressionID *string
	CreatedAt             time.Time
	ExpressionCount       int64
	TransferSentCount     int64
	TransferReceivedCount int64
}

// Counter names one of the three per-wallet sequences.
type Counter int

const (
	CounterExpressions Counter = iota
	CounterTransfersSent
	CounterTransfersReceived
)

// Column returns the wallets column backing the counter.
func (c Counter) Column() string {
	switch c {
	case CounterTransfersSent:
		return "transfer_sent_count"
	case CounterTransfersReceived:
		return "transfer_received_count"
	default:
		return "expression_count"
	}
}
