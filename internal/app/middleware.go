package app

import (
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/middleware"
)

type Middleware struct {
	APIKey *middleware.APIKeyMiddleware
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		APIKey: middleware.NewAPIKeyMiddleware(log),
	}
}
