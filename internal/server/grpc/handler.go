package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	c, ok := callFromContext(ctx)
	if !ok {
		return nil, s.toStatus(ctx, fmt.Errorf("call reached handler without authentication"))
	}

	out, err := s.dispatcher.Route(ctx, c.auth, c.env.Tool, c.env.Params)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res, err := toStruct(out)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Debug(ctx, "call served", "tool", c.env.Tool, "public_key", c.auth.PublicKey)
	return res, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

// toStruct goes through JSON so the result carries the same field names as
// the HTTP response.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("result is not an object: %w", common.ErrorInternal)
	}
	return structpb.NewStruct(m)
}
