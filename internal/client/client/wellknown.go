package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// KeyDocument is the server key announcement at
// /.well-known/0protocol.json.
type KeyDocument struct {
	ServerPublicKey string  `json:"server_pubkey_ed25519"`
	KeyID           string  `json:"key_id"`
	CreatedAt       string  `json:"created_at"`
	ExpiresAt       string  `json:"expires_at"`
	PrevKeyID       *string `json:"prev_key_id"`
	RotationPolicy  struct {
		OverlapDays      int `json:"overlap_days"`
		AnnouncementDays int `json:"announcement_days"`
	} `json:"rotation_policy"`
}

// FetchKeyDocument reads the server key announcement. Both transports
// publish it over HTTP only.
func FetchKeyDocument(ctx context.Context, hc *http.Client, baseURL string) (*KeyDocument, error) {
	var doc KeyDocument
	if err := getJSON(ctx, hc, strings.TrimRight(baseURL, "/")+"/.well-known/0protocol.json", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FetchServerTime returns the server clock as reported by GET /time.
func FetchServerTime(ctx context.Context, hc *http.Client, baseURL string) (time.Time, error) {
	var out struct {
		Timestamp string `json:"timestamp"`
	}
	if err := getJSON(ctx, hc, strings.TrimRight(baseURL, "/")+"/time", &out); err != nil {
		return time.Time{}, err
	}
	t, err := timex.ParseISO(out.Timestamp)
	if err != nil {
		return time.Time{}, ErrUnexpectedResponse
	}
	return t, nil
}
