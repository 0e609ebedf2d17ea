// Package httpapi serves the plain HTTP endpoints used by the messaging
// relay and by login links: the inbound media webhook, the login link
// exchange and a health check.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 5 * time.Second

type InboundHandler interface {
	HandleInbound(ctx context.Context, m models.InboundMedia) error
}

type LoginExchanger interface {
	ExchangeLoginLink(ctx context.Context, token string) (string, *models.User, error)
}

type HTTPServer struct {
	address string
	app     *fiber.App
	inbound InboundHandler
	logins  LoginExchanger
	secret  string
	logger  logging.Logger
}

// New builds the server. An empty relaySecret disables the webhook.
func New(address string, l logging.Logger, inbound InboundHandler, logins LoginExchanger, relaySecret string) *HTTPServer {
	s := &HTTPServer{
		address: address,
		inbound: inbound,
		logins:  logins,
		secret:  relaySecret,
		logger:  l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "abroadportal",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		BodyLimit:             1 << 20,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	s.app.Get("/healthz", s.health)
	s.app.Get("/auth/link", s.exchangeLoginLink)

	hooks := s.app.Group("/webhooks", s.requireRelaySecret)
	hooks.Post("/relay", s.relayMedia)
}

// App exposes the fiber app for in-process tests.
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.app.Listen(s.address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}
