package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/zeroledger/internal/logging"
	pb "github.com/dmitrijs2005/zeroledger/internal/proto"
	"github.com/dmitrijs2005/zeroledger/internal/server/dispatch"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address    string
	dispatcher *dispatch.Dispatcher
	logger     logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, d *dispatch.Dispatcher) *GRPCServer {
	return &GRPCServer{
		address:    a,
		dispatcher: d,
		logger:     l.With("module", "grpc_server"),
	}
}

// newServer builds the grpc.Server with the request id and envelope
// interceptors and the ledger service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.envelopeInterceptor))
	pb.RegisterLedgerServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
