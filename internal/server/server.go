package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/handler"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/workers"
)

type server struct {
	httpServer *httpServer
	workers    []workers.Worker
	logger     *logger.Logger
}

// NewServer builds the transport server and attaches background workers that
// share its lifecycle.
func NewServer(handlers *handler.Handlers, cfg config.Server, background []workers.Worker, logger *logger.Logger) (Server, error) {
	logger.Info().Msg("creating new server...")

	if handlers.HTTP == nil {
		return nil, errNoServersAreCreated
	}

	return &server{
		httpServer: newHTTPServer(handlers.HTTP.Init(), cfg, logger),
		workers:    background,
		logger:     logger,
	}, nil
}

func (s *server) RunServer() {
	idleConnectionsClosed := make(chan struct{})
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	go func() {
		<-ctx.Done()
		s.Shutdown()
		close(idleConnectionsClosed)
	}()

	for _, worker := range s.workers {
		go worker.Run(ctx)
	}

	s.logger.Info().Msg("launching HTTP server")
	go s.httpServer.RunServer()

	<-idleConnectionsClosed
	s.logger.Info().Msg("server shut down gracefully")
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}
