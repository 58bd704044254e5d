package app

import (
	"fmt"

	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/services"
)

type Services struct {
	Flight   services.FlightService
	Payout   services.PayoutService
	Protocol services.ProtocolService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	addrs := ledger.NewAddresses(cfg.ProgramID)
	flight, err := services.NewFlightService(log, clients.Flights, clients.Chain, addrs)
	if err != nil {
		return Services{}, fmt.Errorf("init flight service: %w", err)
	}

	var (
		payout   services.PayoutService
		protocol services.ProtocolService
	)
	if cfg.AdminKey != nil {
		payout, err = services.NewPayoutService(log, clients.Chain, clients.Flights, clients.Claims, reposet.Settlement, cfg.ProgramID, cfg.AdminKey)
		if err != nil {
			return Services{}, fmt.Errorf("init payout service: %w", err)
		}
		protocol, err = services.NewProtocolService(log, clients.Chain, cfg.ProgramID, cfg.AdminKey)
		if err != nil {
			return Services{}, fmt.Errorf("init protocol service: %w", err)
		}
	} else {
		// Read-only protocol service still works without a signer.
		protocol, err = services.NewProtocolService(log, clients.Chain, cfg.ProgramID, nil)
		if err != nil {
			return Services{}, fmt.Errorf("init protocol service: %w", err)
		}
	}

	return Services{
		Flight:   flight,
		Payout:   payout,
		Protocol: protocol,
	}, nil
}
