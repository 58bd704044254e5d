package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/alienx5499/zyura-backend/internal/handlers"
	"github.com/alienx5499/zyura-backend/internal/middleware"
)

type RouterConfig struct {
	FlightHandler     *handlers.FlightHandler
	ChainStateHandler *handlers.ChainStateHandler
	APIKeyMiddleware  *middleware.APIKeyMiddleware
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "x-api-key"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.GET("/flights/:number", cfg.FlightHandler.Get)
		api.GET("/config", cfg.ChainStateHandler.GetConfig)
		api.GET("/product/:id", cfg.ChainStateHandler.GetProduct)
		api.GET("/policy/:id", cfg.ChainStateHandler.GetPolicy)
		api.GET("/liquidity/:wallet", cfg.ChainStateHandler.GetLiquidityProvider)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.APIKeyMiddleware.RequireKey())
	protected.POST("/flights", cfg.FlightHandler.Register)
	protected.POST("/flights/:number/departure", cfg.FlightHandler.UpdateDeparture)
	protected.POST("/flights/:number/settle", cfg.FlightHandler.Settle)

	return router
}
