package app

import (
	"github.com/alienx5499/zyura-backend/internal/handlers"
	"github.com/alienx5499/zyura-backend/internal/logger"
)

type Handlers struct {
	Flight     *handlers.FlightHandler
	ChainState *handlers.ChainStateHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Flight:     handlers.NewFlightHandler(log, serviceset.Flight, serviceset.Payout),
		ChainState: handlers.NewChainStateHandler(log, serviceset.Protocol),
	}
}
