package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	pb "github.com/dmitrijs2005/zeroledger/internal/proto"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type ctxKey string

const callKey ctxKey = "call"

// call is an authenticated envelope waiting to be routed.
type call struct {
	auth *auth.Context
	env  *auth.Envelope
}

func callFromContext(ctx context.Context) (*call, bool) {
	c, ok := ctx.Value(callKey).(*call)
	return c, ok
}

// requestIDInterceptor tags every unary call with a fresh request id, returned
// to the caller in the response header metadata.
func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := logging.NewRequestID()
	_ = grpc.SetHeader(ctx, metadata.Pairs(strings.ToLower(common.RequestIDHeader), id))
	ctx = logging.WithRequestID(ctx, id)

	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Debug(ctx, "call failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}

// envelopeInterceptor authenticates and rate-limits Call before the handler
// runs. Other methods pass through.
func (s *GRPCServer) envelopeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if info.FullMethod != pb.Ledger_Call_FullMethodName {
		return handler(ctx, req)
	}

	in, ok := req.(*structpb.Struct)
	if !ok || in == nil {
		return nil, s.toStatus(ctx, common.NewValidationError("Request must include tool and params"))
	}

	env, err := auth.EnvelopeFromMap(in.AsMap())
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	ac, err := s.dispatcher.Authenticate(ctx, env)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(context.WithValue(ctx, callKey, &call{auth: ac, env: env}), req)
}

// grpcCode maps a protocol error class to a status code.
func grpcCode(c common.Code) codes.Code {
	switch c {
	case common.CodeInvalidRequest:
		return codes.InvalidArgument
	case common.CodeInvalidSignature, common.CodeTimestampExpired, common.CodeNonceReused:
		return codes.Unauthenticated
	case common.CodeForbidden:
		return codes.PermissionDenied
	case common.CodeNotFound:
		return codes.NotFound
	case common.CodeRateLimited:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// toStatus converts err into a status error and sets the protocol code
// trailer. Internal causes are logged, never sent.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	pe, internal := common.AsProtocolError(err)
	if internal {
		s.logger.Error(ctx, "call failed", "error", err)
	}
	_ = grpc.SetTrailer(ctx, metadata.Pairs(common.ErrorCodeTrailer, string(pe.Code)))
	return status.Error(grpcCode(pe.Code), pe.Message)
}
