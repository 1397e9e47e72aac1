package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
)

var publicKeyRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// optionParam reads an enum-like parameter, returning def when absent.
// Non-string values are rendered so they can be reported back.
func optionParam(params map[string]any, key, def string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return def
		}
		return s
	}
	return fmt.Sprint(v)
}

// publicKeyParam validates a hex public key parameter and lowercases it.
func publicKeyParam(params map[string]any, key string) (string, error) {
	s := stringParam(params, key)
	if s == "" {
		return "", common.NewValidationError(key + " is required")
	}
	if !publicKeyRe.MatchString(s) {
		return "", common.NewValidationError(key + " must be 64 hex characters")
	}
	return strings.ToLower(s), nil
}

// storeTimeout bounds calls into the store.
type storeTimeout time.Duration

func (d storeTimeout) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(d))
}
