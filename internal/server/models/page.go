package models

// Page describes a slice of a listing.
type Page struct {
	Limit     int
	Offset    int
	Ascending bool
}
