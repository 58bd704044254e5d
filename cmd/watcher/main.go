package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alienx5499/zyura-backend/internal/app"
	"github.com/alienx5499/zyura-backend/internal/types"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

// The watcher sweeps all active policies on an interval and settles every
// flight with an observed departure. Runs alongside the API server; claims
// keep the two from double-paying.
func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.Services.Payout == nil {
		a.Log.Error("Watcher requires an admin key (ADMIN_KEYPAIR_PATH or ADMIN_PRIVATE_KEY)")
		os.Exit(1)
	}

	intervalSec := utils.GetEnvAsInt("WATCHER_INTERVAL_SECONDS", 60, a.Log)
	interval := time.Duration(intervalSec) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Log.Info("Watcher started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, a)
	for {
		select {
		case <-ctx.Done():
			a.Log.Info("Watcher stopping")
			return
		case <-ticker.C:
			sweep(ctx, a)
		}
	}
}

func sweep(ctx context.Context, a *app.App) {
	evals, err := a.Services.Payout.SettleActivePolicies(ctx)
	if err != nil {
		a.Log.Error("Sweep failed", "error", err)
		return
	}
	var paid, pending int
	for _, eval := range evals {
		for _, out := range eval.Outcomes {
			switch out.Code {
			case types.OutcomePaid:
				paid++
			case types.OutcomePendingRetry:
				pending++
			}
		}
	}
	a.Log.Info("Sweep complete", "flights", len(evals), "paid", paid, "pending_retry", pending)
}
