package models

import "time"

// Expression is an authored, append-only record in its author's log.
type Expression struct {
	ID              string
	AuthorPubKey    string
	Type            string
	Payload         map[string]any
	PayloadHash     string
	GlyphHash       *string
	AuthorSignature string
	LogIndex        int64
	Receipt         *Receipt
	CreatedAt       time.Time
}

// Receipt is the server countersignature attached to a record. Timestamp is
// the exact string that was signed.
type Receipt struct {
	Signature string
	Timestamp string
}
