// Package grpc exposes the session service over gRPC as authkeeper.v1.AuthService.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionManager is the subset of services.SessionService used by handlers.
type SessionManager interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.PublicUser, error)
	VerifyEmail(ctx context.Context, code string) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, token string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	GetProfile(ctx context.Context, userID string) (*services.PublicUser, error)
}

// AccessVerifier validates access tokens. *auth.Codec satisfies it.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.Identity, error)
}

type GRPCServer struct {
	pb.UnimplementedAuthServiceServer
	address        string
	sessions       SessionManager
	tokens         AccessVerifier
	logger         logging.Logger
	exposeInternal bool
}

// NewGRPCServer builds the server. exposeInternal shows internal error
// details to callers and is meant for development only.
func NewGRPCServer(address string, l logging.Logger, sessions SessionManager, tokens AccessVerifier, exposeInternal bool) *GRPCServer {
	return &GRPCServer{
		address:        address,
		sessions:       sessions,
		tokens:         tokens,
		logger:         l.With("module", "grpc_server"),
		exposeInternal: exposeInternal,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	pb.RegisterAuthServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
