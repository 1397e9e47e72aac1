package models

import "time"

const (
	VisibilityPublic       = "public"
	VisibilityMetadataOnly = "metadata_only"

	WitnessWitnessed = "witnessed"
	WitnessPending   = "pending"
)

// Transfer is a directed record from one principal to another. Payload is
// nil unless Visibility is public. RecipientLogIndex is nil when the
// recipient had no wallet at the time of the transfer.
type Transfer struct {
	ID                string
	From              string
	To                string
	PayloadHash       string
	Payload           map[string]any
	Visibility        string
	SenderSignature   string
	SenderLogIndex    int64
	RecipientLogIndex *int64
	WitnessStatus     string
	Receipt           *Receipt
	CreatedAt         time.Time
}
