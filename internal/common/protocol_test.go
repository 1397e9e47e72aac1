package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeInvalidRequest:   http.StatusBadRequest,
		CodeInvalidSignature: http.StatusUnauthorized,
		CodeTimestampExpired: http.StatusUnauthorized,
		CodeNonceReused:      http.StatusUnauthorized,
		CodeForbidden:        http.StatusForbidden,
		CodeNotFound:         http.StatusNotFound,
		CodeRateLimited:      http.StatusTooManyRequests,
		CodeServerError:      http.StatusInternalServerError,
		Code("SOMETHING"):    http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestAsProtocolError_Wrapped(t *testing.T) {
	pe := NewAuthError(CodeNonceReused, "Nonce already used")
	wrapped := fmt.Errorf("verify: %w", pe)

	got, internal := AsProtocolError(wrapped)
	assert.False(t, internal)
	assert.Same(t, pe, got)
}

func TestAsProtocolError_UnknownCollapses(t *testing.T) {
	got, internal := AsProtocolError(errors.New("pq: connection refused to 10.0.0.3"))
	assert.True(t, internal)
	assert.Equal(t, CodeServerError, got.Code)
	assert.Equal(t, InternalErrorMessage, got.Message)
	assert.Empty(t, got.Details)
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("x: %w", NewValidationError("public_key must be 64 hex characters"))
	assert.ErrorIs(t, err, &Error{Code: CodeInvalidRequest})
	assert.NotErrorIs(t, err, &Error{Code: CodeForbidden})
}

func TestErrorBody_WireShape(t *testing.T) {
	b, err := json.Marshal(ErrorBody{Error: NewNotFoundError("Wallet not found")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"Wallet not found","details":{}}}`, string(b))
}
