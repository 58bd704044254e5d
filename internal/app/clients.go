package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/alienx5499/zyura-backend/internal/clients/github"
	redisclient "github.com/alienx5499/zyura-backend/internal/clients/redis"
	solanaclient "github.com/alienx5499/zyura-backend/internal/clients/solana"
	"github.com/alienx5499/zyura-backend/internal/logger"
)

type Clients struct {
	Chain   solanaclient.Client
	Flights github.FlightStore
	Claims  redisclient.ClaimStore
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	chain, err := solanaclient.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init solana client: %w", err)
	}

	flights, err := github.NewFlightStore(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init flight store: %w", err)
	}

	// Redis is optional: without it claims are process-local, which is
	// enough for a single settler.
	var claims redisclient.ClaimStore
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		claims, err = redisclient.NewClaimStore(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis claim store: %w", err)
		}
	} else {
		claims = redisclient.NewLocalClaimStore()
	}

	return Clients{
		Chain:   chain,
		Flights: flights,
		Claims:  claims,
	}, nil
}
