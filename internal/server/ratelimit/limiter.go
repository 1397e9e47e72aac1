// Package ratelimit meters tool calls per (principal, tool) in fixed windows.
//
// Windows are aligned to the first request, not to the wall clock, so a
// caller can get up to twice the limit through across a window boundary.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/common"
)

// DefaultWindow is the length of one metering window.
const DefaultWindow = time.Minute

// Limiter admits or rejects a call. A rejection is a RATE_LIMITED
// *common.Error; any other error is a backend failure.
type Limiter interface {
	Allow(ctx context.Context, principal, tool string) error
}

// Limits maps tool name to requests per window. Tools that are absent or
// mapped to a non-positive value are not metered.
type Limits map[string]int

// DefaultLimits returns the stock table.
func DefaultLimits() Limits {
	return Limits{
		common.ToolExpress:  100,
		common.ToolOwn:      300,
		common.ToolTransfer: 50,
	}
}

func (l Limits) lookup(tool string) (int, bool) {
	n, ok := l[tool]
	return n, ok && n > 0
}

func key(principal, tool string) string {
	return principal + ":" + tool
}

func exceeded(tool string, limit int) error {
	return common.NewRateLimitError(fmt.Sprintf("Rate limit exceeded for %s: %d/min", tool, limit))
}
