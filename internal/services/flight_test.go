package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/types"
)

func newFlightService(t *testing.T, store *fakeFlightStore, chain *fakeChain, addrs ledger.Addresses) *flightService {
	t.Helper()
	svc := &flightService{
		log:     logger.NewNop(),
		flights: store,
		addrs:   addrs,
		now:     func() time.Time { return time.Unix(1_762_300_000, 0) },
	}
	if chain != nil {
		svc.chain = chain
	}
	return svc
}

func TestRegisterCreatesRecord(t *testing.T) {
	store := &fakeFlightStore{}
	svc := newFlightService(t, store, nil, ledger.Addresses{})

	rec, err := svc.Register(context.Background(), RegisterFlightRequest{
		FlightNumber:           "aa123",
		Date:                   "2025-11-04",
		ScheduledDepartureUnix: 1_762_266_600,
		Origin:                 "JFK",
		Destination:            "LAX",
		Pnrs: []types.PnrRecord{
			{Pnr: "ABC123", Passenger: types.Passenger{FullName: "Ada Lovelace"}},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.FlightNumber != "AA123" {
		t.Fatalf("flight number should be uppercased: %s", rec.FlightNumber)
	}
	if len(rec.Pnrs) != 1 || rec.Pnrs[0].CreatedAt == 0 {
		t.Fatalf("pnr not recorded: %+v", rec.Pnrs)
	}
	if store.upserts != 1 {
		t.Fatalf("upserts: %d", store.upserts)
	}
}

func TestRegisterMergesExistingPnr(t *testing.T) {
	store := &fakeFlightStore{record: &types.FlightRecord{
		FlightNumber: "AA123",
		Date:         "2025-11-04",
		Pnrs: []types.PnrRecord{
			{Pnr: "ABC123", Passenger: types.Passenger{FullName: "Ada Lovelace"}, CreatedAt: 100},
			{Pnr: "DEF456", CreatedAt: 100},
		},
	}}
	svc := newFlightService(t, store, nil, ledger.Addresses{})

	rec, err := svc.Register(context.Background(), RegisterFlightRequest{
		FlightNumber: "AA123",
		Pnrs: []types.PnrRecord{
			{Pnr: "ABC123", PolicyID: 42, Wallet: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"},
			{Pnr: "GHI789"},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(rec.Pnrs) != 3 {
		t.Fatalf("pnr count: %d", len(rec.Pnrs))
	}
	merged := rec.Pnr("ABC123")
	if merged.PolicyID != 42 || merged.Wallet == "" {
		t.Fatalf("pnr not merged: %+v", merged)
	}
	if merged.Passenger.FullName != "Ada Lovelace" {
		t.Fatalf("existing passenger must survive merge: %+v", merged)
	}
	if merged.CreatedAt != 100 {
		t.Fatalf("created_at must not change on merge: %d", merged.CreatedAt)
	}
}

func TestRegisterRejectsBadPnr(t *testing.T) {
	svc := newFlightService(t, &fakeFlightStore{}, nil, ledger.Addresses{})

	_, err := svc.Register(context.Background(), RegisterFlightRequest{
		FlightNumber: "AA123",
		Pnrs:         []types.PnrRecord{{Pnr: "TOOLONG7"}},
	})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdateDepartureComputesDelay(t *testing.T) {
	store := &fakeFlightStore{record: &types.FlightRecord{
		FlightNumber:           "AA123",
		Date:                   "2025-11-04",
		ScheduledDepartureUnix: 1_762_266_600,
	}}
	svc := newFlightService(t, store, nil, ledger.Addresses{})

	rec, err := svc.UpdateDeparture(context.Background(), "AA123", "2025-11-04", 1_762_266_600+95*60)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.ActualDepartureUnix == nil || rec.DelayMinutes != 95 {
		t.Fatalf("delay not computed: %+v", rec)
	}
	if rec.Status != "departed" {
		t.Fatalf("status: %s", rec.Status)
	}
}

func TestUpdateDepartureEarlyIsZeroDelay(t *testing.T) {
	store := &fakeFlightStore{record: &types.FlightRecord{
		FlightNumber:           "AA123",
		ScheduledDepartureUnix: 1_762_266_600,
	}}
	svc := newFlightService(t, store, nil, ledger.Addresses{})

	rec, err := svc.UpdateDeparture(context.Background(), "AA123", "", 1_762_266_600-600)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.DelayMinutes != 0 {
		t.Fatalf("early departure must clamp to zero, got %d", rec.DelayMinutes)
	}
}

func TestUpdateDepartureMissingFlight(t *testing.T) {
	svc := newFlightService(t, &fakeFlightStore{}, nil, ledger.Addresses{})

	_, err := svc.UpdateDeparture(context.Background(), "ZZ999", "", 1_762_266_600)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAttachesPolicyHints(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	addrs := ledger.NewAddresses(programID)
	chain := &fakeChain{}

	paidAt := int64(1_762_280_000)
	policy := &types.Policy{
		ID:           42,
		Policyholder: solana.NewWallet().PublicKey(),
		FlightNumber: "AA123",
		Status:       types.PolicyStatusPaidOut,
		PaidAt:       &paidAt,
	}
	pda, _, err := addrs.Policy(42)
	if err != nil {
		t.Fatalf("pda: %v", err)
	}
	chain.set(pda, ledger.EncodePolicy(policy))

	store := &fakeFlightStore{record: &types.FlightRecord{
		FlightNumber: "AA123",
		Pnrs: []types.PnrRecord{
			{Pnr: "ABC123", PolicyID: 42},
			{Pnr: "DEF456", PolicyID: 99},
		},
	}}
	svc := newFlightService(t, store, chain, addrs)

	view, err := svc.Get(context.Background(), "AA123", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Hints[42].Status != "paid_out" || view.Hints[42].PaidAt == nil {
		t.Fatalf("hint for settled policy: %+v", view.Hints[42])
	}
	if view.Hints[99].Status != "unknown" {
		t.Fatalf("missing policy must read unknown: %+v", view.Hints[99])
	}
}
