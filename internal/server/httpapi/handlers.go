package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/glyph"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
	"github.com/gorilla/mux"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": {...}}. Causes that are not protocol
// errors are logged and replaced with SERVER_ERROR.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	pe, internal := common.AsProtocolError(err)
	if internal {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, pe.Code.HTTPStatus(), common.ErrorBody{Error: pe})
}

func (s *HTTPServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, common.NewValidationError("Request body must be valid JSON"))
		return
	}
	env, err := auth.ParseEnvelope(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.dispatcher.Handle(r.Context(), env)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "protocol": ProtocolName})
}

func (s *HTTPServer) handleTime(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": timex.FormatISO(now),
		"unix":      now.Unix(),
	})
}

func (s *HTTPServer) handleKeys(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.keys)
}

// parsePage reads limit, offset and order. Unparseable values fall back to
// the defaults; limit is clamped to [1, 100] and offset to >= 0.
func parsePage(q url.Values) models.Page {
	limit := defaultLimit
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = min(max(n, 1), maxLimit)
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = max(n, 0)
	}
	return models.Page{Limit: limit, Offset: offset, Ascending: q.Get("order") == "asc"}
}

func (s *HTTPServer) handleGetExpression(w http.ResponseWriter, r *http.Request) {
	out, err := s.query.Expression(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleListExpressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	author := q.Get("author")
	if author == "" {
		s.writeError(w, r, common.NewValidationError("author parameter is required"))
		return
	}
	out, err := s.query.Expressions(r.Context(), author, parsePage(q), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	out, err := s.query.Wallet(r.Context(), mux.Vars(r)["pubkey"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleWalletLog(w http.ResponseWriter, r *http.Request) {
	out, err := s.query.Expressions(r.Context(), mux.Vars(r)["pubkey"], parsePage(r.URL.Query()), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	out, err := s.query.Transfer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.query.Transfers(r.Context(), q.Get("from"), q.Get("to"), parsePage(q))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleGlyph(w http.ResponseWriter, r *http.Request) {
	svg, err := s.query.GlyphSVG(r.Context(), mux.Vars(r)["prefix"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", glyph.ContentType)
	w.Header().Set("Cache-Control", glyph.CacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, svg)
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleMethodNotAllowed(w, r)
		return
	}
	s.writeError(w, r, common.NewNotFoundError("Endpoint not found"))
}

func (s *HTTPServer) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/mcp" {
		s.writeError(w, r, common.NewValidationError("MCP endpoint accepts POST only"))
		return
	}
	s.writeError(w, r, common.NewValidationError("HTTP endpoints accept GET only"))
}
