package gameserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GRPCService serves the advisor and the standard health service.
type GRPCService struct {
	addr   string
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
	bound  chan net.Addr
}

// NewGRPCService registers advisor on a new gRPC server bound to addr
// once Run is called.
//
// Precondition: advisor and logger must be non-nil.
func NewGRPCService(addr string, advisor AdvisorServer, logger *zap.Logger) *GRPCService {
	if advisor == nil || logger == nil {
		panic("gameserver.NewGRPCService: advisor and logger must not be nil")
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterAdvisorServer(srv, advisor)
	hs := health.NewServer()
	hs.SetServingStatus(AdvisorServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPCService{
		addr:   addr,
		server: srv,
		health: hs,
		logger: logger,
		bound:  make(chan net.Addr, 1),
	}
}

// Bound delivers the listening address once Run has bound it.
func (s *GRPCService) Bound() <-chan net.Addr { return s.bound }

// Run listens on the configured address and serves until ctx is cancelled.
//
// Postcondition: Returns nil after a graceful stop.
func (s *GRPCService) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.logger.Info("advisor listening", zap.String("addr", lis.Addr().String()))
	s.bound <- lis.Addr()

	stop := context.AfterFunc(ctx, func() {
		s.health.Shutdown()
		s.server.GracefulStop()
	})
	defer stop()

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving advisor: %w", err)
	}
	return nil
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("advisor call",
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}
