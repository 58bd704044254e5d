package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alienx5499/zyura-backend/internal/clients/github"
	solanaclient "github.com/alienx5499/zyura-backend/internal/clients/solana"
	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/types"
)

const flightWriteAttempts = 5

// RegisterFlightRequest creates or extends a flight record. PNRs are merged
// by booking reference: a PNR already on file is updated in place, never
// duplicated.
type RegisterFlightRequest struct {
	FlightNumber           string            `json:"flight_number"`
	Date                   string            `json:"date"`
	ScheduledDepartureUnix int64             `json:"scheduled_departure_unix"`
	Origin                 string            `json:"origin,omitempty"`
	Destination            string            `json:"destination,omitempty"`
	Pnrs                   []types.PnrRecord `json:"pnrs"`
}

// PolicyHint is chain-derived context attached to a PNR on reads.
type PolicyHint struct {
	PolicyID uint64 `json:"policy_id"`
	Status   string `json:"status"`
	PaidAt   *int64 `json:"paid_at,omitempty"`
}

// FlightView is a flight record enriched with on-chain policy status.
type FlightView struct {
	Record *types.FlightRecord   `json:"record"`
	Hints  map[uint64]PolicyHint `json:"policy_status,omitempty"`
}

type FlightService interface {
	Register(ctx context.Context, req RegisterFlightRequest) (*types.FlightRecord, error)
	UpdateDeparture(ctx context.Context, flightNumber, date string, actualDepartureUnix int64) (*types.FlightRecord, error)
	Get(ctx context.Context, flightNumber, date string) (*FlightView, error)
}

type flightService struct {
	log     *logger.Logger
	flights github.FlightStore
	chain   solanaclient.Client
	addrs   ledger.Addresses
	now     func() time.Time
}

func NewFlightService(log *logger.Logger, flights github.FlightStore, chain solanaclient.Client, addrs ledger.Addresses) (FlightService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if flights == nil {
		return nil, fmt.Errorf("flight store required")
	}
	return &flightService{
		log:     log.With("service", "FlightService"),
		flights: flights,
		chain:   chain,
		addrs:   addrs,
		now:     time.Now,
	}, nil
}

func validatePnr(pnr string) error {
	if len(pnr) != 6 {
		return fmt.Errorf("pnr %q must be exactly 6 characters: %w", pnr, errs.ErrInvalidArgument)
	}
	return nil
}

func (s *flightService) Register(ctx context.Context, req RegisterFlightRequest) (*types.FlightRecord, error) {
	number := strings.TrimSpace(strings.ToUpper(req.FlightNumber))
	if number == "" {
		return nil, fmt.Errorf("flight number required: %w", errs.ErrInvalidArgument)
	}
	for _, p := range req.Pnrs {
		if err := validatePnr(p.Pnr); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < flightWriteAttempts; attempt++ {
		nowUnix := s.now().Unix()
		record, rev, err := s.flights.GetFlightRecord(ctx, number, "")
		switch {
		case errors.Is(err, errs.ErrNotFound):
			record = &types.FlightRecord{
				FlightNumber: number,
				Date:         req.Date,
				CreatedAt:    nowUnix,
			}
			rev = ""
		case err != nil:
			return nil, err
		}

		if req.Date != "" {
			record.Date = req.Date
		}
		if req.ScheduledDepartureUnix != 0 {
			record.ScheduledDepartureUnix = req.ScheduledDepartureUnix
		}
		if req.Origin != "" {
			record.Origin = req.Origin
		}
		if req.Destination != "" {
			record.Destination = req.Destination
		}
		for _, incoming := range req.Pnrs {
			mergePnr(record, incoming, nowUnix)
		}
		record.UpdatedAt = nowUnix

		msg := fmt.Sprintf("register %d pnr(s) on %s", len(req.Pnrs), number)
		if _, err := s.flights.UpsertFlightRecord(ctx, record, rev, msg); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return record, nil
	}
	return nil, fmt.Errorf("register flight %s lost %d races: %w", number, flightWriteAttempts, lastErr)
}

func mergePnr(record *types.FlightRecord, incoming types.PnrRecord, nowUnix int64) {
	existing := record.Pnr(incoming.Pnr)
	if existing == nil {
		incoming.CreatedAt = nowUnix
		incoming.UpdatedAt = nowUnix
		record.Pnrs = append(record.Pnrs, incoming)
		return
	}
	if incoming.PolicyID != 0 {
		existing.PolicyID = incoming.PolicyID
	}
	if incoming.Policyholder != "" {
		existing.Policyholder = incoming.Policyholder
	}
	if incoming.Wallet != "" {
		existing.Wallet = incoming.Wallet
	}
	if incoming.Passenger.FullName != "" {
		existing.Passenger = incoming.Passenger
	}
	if incoming.NftMetadataURL != "" {
		existing.NftMetadataURL = incoming.NftMetadataURL
	}
	if incoming.Notes != "" {
		existing.Notes = incoming.Notes
	}
	existing.UpdatedAt = nowUnix
}

func (s *flightService) UpdateDeparture(ctx context.Context, flightNumber, date string, actualDepartureUnix int64) (*types.FlightRecord, error) {
	number := strings.TrimSpace(strings.ToUpper(flightNumber))
	if number == "" {
		return nil, fmt.Errorf("flight number required: %w", errs.ErrInvalidArgument)
	}
	if actualDepartureUnix <= 0 {
		return nil, fmt.Errorf("actual departure must be a positive unix timestamp: %w", errs.ErrInvalidArgument)
	}

	var lastErr error
	for attempt := 0; attempt < flightWriteAttempts; attempt++ {
		record, rev, err := s.flights.GetFlightRecord(ctx, number, date)
		if err != nil {
			return nil, err
		}

		nowUnix := s.now().Unix()
		actual := actualDepartureUnix
		record.ActualDepartureUnix = &actual
		record.DelayMinutes = DelayMinutes(record.ScheduledDepartureUnix, actual)
		record.Status = "departed"
		record.UpdatedAt = nowUnix

		msg := fmt.Sprintf("record departure for %s (delay %dm)", number, record.DelayMinutes)
		if _, err := s.flights.UpsertFlightRecord(ctx, record, rev, msg); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.log.Info("Departure recorded", "flight", number, "delay_minutes", record.DelayMinutes)
		return record, nil
	}
	return nil, fmt.Errorf("update departure for %s lost %d races: %w", number, flightWriteAttempts, lastErr)
}

func (s *flightService) Get(ctx context.Context, flightNumber, date string) (*FlightView, error) {
	record, _, err := s.flights.GetFlightRecord(ctx, strings.TrimSpace(strings.ToUpper(flightNumber)), date)
	if err != nil {
		return nil, err
	}
	view := &FlightView{Record: record}
	if s.chain == nil {
		return view, nil
	}

	hints := map[uint64]PolicyHint{}
	for _, id := range record.PolicyIDs() {
		hint := PolicyHint{PolicyID: id, Status: "unknown"}
		if policy, err := s.fetchPolicy(ctx, id); err == nil {
			hint.Status = policy.Status.String()
			hint.PaidAt = policy.PaidAt
		} else {
			s.log.Debug("Policy status hint unavailable", "policy_id", id, "error", err)
		}
		hints[id] = hint
	}
	if len(hints) > 0 {
		view.Hints = hints
	}
	return view, nil
}

func (s *flightService) fetchPolicy(ctx context.Context, policyID uint64) (*types.Policy, error) {
	pda, _, err := s.addrs.Policy(policyID)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodePolicy(raw)
}
