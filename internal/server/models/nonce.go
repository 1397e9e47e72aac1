package models

import "time"

// Nonce records a consumed (principal, nonce) pair.
type Nonce struct {
	PublicKey string
	Nonce     string
	UsedAt    time.Time
}
