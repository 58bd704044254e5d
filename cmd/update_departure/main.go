package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alienx5499/zyura-backend/internal/app"
)

// Records an observed departure for one flight and optionally settles it.
// The departure is taken from ACTUAL_DEPARTURE_UNIX, or from
// ACTUAL_DEPARTURE_ISO (RFC 3339) when the unix form is unset:
//
//	FLIGHT_NUMBER=AA123 ACTUAL_DEPARTURE_UNIX=1762272000 SETTLE=true go run ./cmd/update_departure
//	FLIGHT_NUMBER=AA123 ACTUAL_DEPARTURE_ISO=2025-11-04T16:00:00Z go run ./cmd/update_departure
func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	number := strings.TrimSpace(os.Getenv("FLIGHT_NUMBER"))
	if number == "" {
		a.Log.Fatal("FLIGHT_NUMBER is required")
	}
	actual, err := parseDeparture(os.Getenv("ACTUAL_DEPARTURE_UNIX"), os.Getenv("ACTUAL_DEPARTURE_ISO"))
	if err != nil {
		a.Log.Fatal("Invalid departure time", "error", err)
	}
	date := strings.TrimSpace(os.Getenv("FLIGHT_DATE"))

	ctx := context.Background()
	record, err := a.Services.Flight.UpdateDeparture(ctx, number, date, actual)
	if err != nil {
		a.Log.Fatal("Departure update failed", "flight", number, "error", err)
	}
	a.Log.Info("Departure recorded", "flight", number, "delay_minutes", record.DelayMinutes)

	if !strings.EqualFold(os.Getenv("SETTLE"), "true") {
		return
	}
	if a.Services.Payout == nil {
		a.Log.Fatal("SETTLE=true requires an admin key")
	}
	eval, err := a.Services.Payout.EvaluateFlight(ctx, number, date)
	if err != nil {
		a.Log.Fatal("Settlement failed", "flight", number, "error", err)
	}
	raw, _ := json.MarshalIndent(eval, "", "  ")
	fmt.Println(string(raw))
}

// parseDeparture resolves the departure time from the unix form first, then
// the RFC 3339 form.
func parseDeparture(unixStr, isoStr string) (int64, error) {
	if raw := strings.TrimSpace(unixStr); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ACTUAL_DEPARTURE_UNIX must be a unix timestamp: %w", err)
		}
		return v, nil
	}
	if raw := strings.TrimSpace(isoStr); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, fmt.Errorf("ACTUAL_DEPARTURE_ISO must be RFC 3339: %w", err)
		}
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("set ACTUAL_DEPARTURE_UNIX or ACTUAL_DEPARTURE_ISO")
}
