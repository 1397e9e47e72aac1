// Package dispatch authenticates signed envelopes and routes them to tools.
// Both transports go through it so the gate order is the same everywhere.
package dispatch

import (
	"context"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/ratelimit"
	"github.com/dmitrijs2005/zeroledger/internal/server/services"
)

// Tool executes one authenticated call.
type Tool func(ctx context.Context, ac *auth.Context, params map[string]any) (any, error)

type Dispatcher struct {
	verifier *auth.Verifier
	limiter  ratelimit.Limiter
	tools    map[string]Tool
	logger   logging.Logger
}

func New(verifier *auth.Verifier, limiter ratelimit.Limiter, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		verifier: verifier,
		limiter:  limiter,
		tools:    make(map[string]Tool),
		logger:   logger.With("module", "dispatch"),
	}
}

// Register binds a tool name. A later registration replaces an earlier one.
func (d *Dispatcher) Register(name string, t Tool) *Dispatcher {
	d.tools[name] = t
	return d
}

// RegisterServices binds express, own and transfer.
func (d *Dispatcher) RegisterServices(e *services.ExpressService, o *services.OwnService, t *services.TransferService) *Dispatcher {
	return d.
		Register(common.ToolExpress, func(ctx context.Context, ac *auth.Context, p map[string]any) (any, error) {
			return e.Express(ctx, ac, p)
		}).
		Register(common.ToolOwn, func(ctx context.Context, ac *auth.Context, p map[string]any) (any, error) {
			return o.Own(ctx, ac, p)
		}).
		Register(common.ToolTransfer, func(ctx context.Context, ac *auth.Context, p map[string]any) (any, error) {
			return t.Transfer(ctx, ac, p)
		})
}

// Authenticate verifies the envelope and charges the caller's rate limit for
// the requested tool.
func (d *Dispatcher) Authenticate(ctx context.Context, env *auth.Envelope) (*auth.Context, error) {
	ac, err := d.verifier.Verify(ctx, env)
	if err != nil {
		return nil, err
	}
	if err := d.limiter.Allow(ctx, ac.PublicKey, env.Tool); err != nil {
		return nil, err
	}
	return ac, nil
}

// Route runs an already authenticated call.
func (d *Dispatcher) Route(ctx context.Context, ac *auth.Context, tool string, params map[string]any) (any, error) {
	t, ok := d.tools[tool]
	if !ok {
		return nil, common.NewValidationError("Unknown tool: " + tool)
	}
	if params == nil {
		params = map[string]any{}
	}
	return t(ctx, ac, params)
}

// Handle authenticates and routes env. Errors that are not protocol errors
// are logged here and returned as SERVER_ERROR.
func (d *Dispatcher) Handle(ctx context.Context, env *auth.Envelope) (any, error) {
	ac, err := d.Authenticate(ctx, env)
	if err == nil {
		var out any
		out, err = d.Route(ctx, ac, env.Tool, env.Params)
		if err == nil {
			return out, nil
		}
	}
	return nil, d.protocolError(ctx, env, err)
}

func (d *Dispatcher) protocolError(ctx context.Context, env *auth.Envelope, err error) *common.Error {
	pe, internal := common.AsProtocolError(err)
	if internal {
		tool := ""
		if env != nil {
			tool = env.Tool
		}
		d.logger.Error(ctx, "tool call failed", "tool", tool, "error", err)
	}
	return pe
}
