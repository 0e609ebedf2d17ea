package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/auth"
	"github.com/dmitrijs2005/abroadportal/internal/server/guard"
	"github.com/dmitrijs2005/abroadportal/internal/server/services"
	"google.golang.org/grpc"
)

// Services are the application services exposed over gRPC.
type Services struct {
	Users         *services.UserService
	Documents     *services.DocumentService
	Progression   *services.ProgressionService
	Admin         *services.AdminService
	Notifications *services.NotificationService
}

type sessionLoader interface {
	Session(ctx context.Context, userID string) (*guard.Session, error)
}

type GRPCServer struct {
	address  string
	svc      Services
	sessions sessionLoader
	access   *auth.AccessIssuer
	policy   guard.Policy
	logger   logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, svc Services, access *auth.AccessIssuer) (*GRPCServer, error) {
	if svc.Users == nil || access == nil {
		return nil, errors.New("grpc server: user service and access issuer are required")
	}
	return &GRPCServer{
		address:  address,
		svc:      svc,
		sessions: svc.Users,
		access:   access,
		policy:   MethodPolicy,
		logger:   l.With("module", "grpc_server"),
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor))
	srv.RegisterService(serviceDesc(), s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
