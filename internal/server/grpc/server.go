package grpc

import (
	"context"
	"errors"
	"net"

	pb "github.com/dmitrijs2005/demoauth/internal/proto"
	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/auth"
	"github.com/dmitrijs2005/demoauth/internal/server/metrics"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"google.golang.org/grpc"
)

// Sessions is the session service as seen by the transport.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, raw string) (*models.TokenPair, error)
	Logout(ctx context.Context, raw, accessToken string)
	Introspect(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type GRPCServer struct {
	pb.UnimplementedSessionServiceServer
	address  string
	sessions Sessions
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, sessions Sessions, m *metrics.Metrics) (*GRPCServer, error) {
	if l == nil {
		l = logging.Nop{}
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
		metrics:  m,
	}, nil
}

// NewServer builds a grpc.Server with the interceptor chain and the session
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))
	srv := grpc.NewServer(opts...)
	pb.RegisterSessionServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
