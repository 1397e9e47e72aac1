package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/zeroledger/internal/common"
	pb "github.com/dmitrijs2005/zeroledger/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.LedgerClient
	signer      *Signer
}

func NewGRPCClient(endpointURL string, signer *Signer) (*GRPCClient, error) {
	conn, err := grpc.NewClient(endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		endpointURL: endpointURL,
		conn:        conn,
		client:      pb.NewLedgerClient(conn),
		signer:      signer,
	}, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var trailer metadata.MD
	resp, err := s.client.Ping(ctx, &emptypb.Empty{}, grpc.Trailer(&trailer))
	if err != nil {
		return mapError(err, trailer)
	}
	if resp.GetFields()["status"].GetStringValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Call(ctx context.Context, tool string, params map[string]any) (map[string]any, error) {
	env, err := s.signer.Sign(tool, params)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so params hold only structpb-compatible types.
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	var trailer metadata.MD
	resp, err := s.client.Call(ctx, req, grpc.Trailer(&trailer))
	if err != nil {
		return nil, mapError(err, trailer)
	}
	return resp.AsMap(), nil
}

// mapError restores the protocol error from the status message and the
// error-code trailer. Without a trailer the status is a transport failure.
func mapError(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	if v := trailer.Get(common.ErrorCodeTrailer); len(v) > 0 {
		return common.NewError(common.Code(v[0]), st.Message(), nil)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
