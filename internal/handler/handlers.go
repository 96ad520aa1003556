package handler

import (
	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/handler/http"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/service"
)

// Handlers groups the transport handlers of the server. The sync protocol is
// served over HTTP only.
type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg *config.StructuredConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}
	if cfg.Server.HTTPAddress != "" {
		handlers.HTTP = http.NewHandler(services, cfg.App.Version, logger)
	}

	if handlers.HTTP == nil {
		return nil, errNoHandlersAreCreated
	}

	return handlers, nil
}
