// Package httpapi serves the signed envelope endpoint and the public
// read-only views over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/dispatch"
	"github.com/dmitrijs2005/zeroledger/internal/server/services"
	"github.com/gorilla/mux"
)

const (
	// ProtocolName is reported by GET /.
	ProtocolName = "0.protocol"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// RotationPolicy is the announced key rotation schedule.
type RotationPolicy struct {
	OverlapDays      int `json:"overlap_days"`
	AnnouncementDays int `json:"announcement_days"`
}

// KeyDocument is served at /.well-known/0protocol.json.
type KeyDocument struct {
	ServerPublicKey string         `json:"server_pubkey_ed25519"`
	KeyID           string         `json:"key_id"`
	CreatedAt       string         `json:"created_at"`
	ExpiresAt       string         `json:"expires_at"`
	RotationPolicy  RotationPolicy `json:"rotation_policy"`
	PrevKeyID       *string        `json:"prev_key_id"`
}

// DefaultRotationPolicy returns the published overlap and announcement
// periods.
func DefaultRotationPolicy() RotationPolicy {
	return RotationPolicy{OverlapDays: 30, AnnouncementDays: 60}
}

type HTTPServer struct {
	address    string
	dispatcher *dispatch.Dispatcher
	query      *services.QueryService
	keys       KeyDocument
	now        func() time.Time
	logger     logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, d *dispatch.Dispatcher, q *services.QueryService, keys KeyDocument) *HTTPServer {
	return &HTTPServer{
		address:    address,
		dispatcher: d,
		query:      q,
		keys:       keys,
		now:        time.Now,
		logger:     l.With("module", "http_server"),
	}
}

// Handler returns the complete handler chain.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/mcp", s.handleMCP).Methods(http.MethodPost)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/time", s.handleTime).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/0protocol.json", s.handleKeys).Methods(http.MethodGet)
	r.HandleFunc("/expressions", s.handleListExpressions).Methods(http.MethodGet)
	r.HandleFunc("/expressions/{id:[a-z0-9_]+}", s.handleGetExpression).Methods(http.MethodGet)
	r.HandleFunc("/wallets/{pubkey:[0-9a-fA-F]+}", s.handleGetWallet).Methods(http.MethodGet)
	r.HandleFunc("/wallets/{pubkey:[0-9a-fA-F]+}/log", s.handleWalletLog).Methods(http.MethodGet)
	r.HandleFunc("/transfers", s.handleListTransfers).Methods(http.MethodGet)
	r.HandleFunc("/transfers/{id:[a-z0-9_]+}", s.handleGetTransfer).Methods(http.MethodGet)
	r.HandleFunc("/glyph/{prefix:[0-9a-fA-F]+}.svg", s.handleGlyph).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	return s.withRequestID(s.withAccessLog(withCORS(r)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
