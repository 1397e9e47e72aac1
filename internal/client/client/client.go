package client

import (
	"context"
	"errors"
)

var (
	ErrUnavailable        = errors.New("server unavailable")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Client sends signed tool calls to the ledger. Call returns the decoded
// tool result.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Call(ctx context.Context, tool string, params map[string]any) (map[string]any, error)
}
