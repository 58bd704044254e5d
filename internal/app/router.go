package app

import (
	"github.com/gin-gonic/gin"

	"github.com/alienx5499/zyura-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		FlightHandler:     handlerset.Flight,
		ChainStateHandler: handlerset.ChainState,
		APIKeyMiddleware:  mw.APIKey,
		AllowOrigins:      cfg.AllowOrigins,
	})
}
