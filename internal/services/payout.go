package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alienx5499/zyura-backend/internal/clients/github"
	redisclient "github.com/alienx5499/zyura-backend/internal/clients/redis"
	solanaclient "github.com/alienx5499/zyura-backend/internal/clients/solana"
	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/repos"
	"github.com/alienx5499/zyura-backend/internal/types"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

const gatewayWriteAttempts = 5

// PayoutService settles flight-delay policies. Settlement is at-most-once:
// the ledger's policy status is the source of truth, every attempt is
// journaled, and a policy is re-read from chain before any ambiguous resend.
type PayoutService interface {
	EvaluateFlight(ctx context.Context, flightNumber, date string) (*types.FlightEvaluation, error)
	SettleActivePolicies(ctx context.Context) ([]*types.FlightEvaluation, error)
}

type payoutService struct {
	log     *logger.Logger
	chain   solanaclient.Client
	flights github.FlightStore
	claims  redisclient.ClaimStore
	journal repos.SettlementRepo

	addrs   ledger.Addresses
	builder ledger.Builder
	admin   solana.PrivateKey

	concurrency  int
	batchTimeout time.Duration
	now          func() time.Time
}

func NewPayoutService(
	log *logger.Logger,
	chain solanaclient.Client,
	flights github.FlightStore,
	claims redisclient.ClaimStore,
	journal repos.SettlementRepo,
	programID solana.PublicKey,
	admin solana.PrivateKey,
) (PayoutService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if chain == nil || flights == nil || claims == nil || journal == nil {
		return nil, fmt.Errorf("chain, flights, claims and journal are required")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("program id required")
	}
	if admin == nil {
		return nil, fmt.Errorf("admin key required")
	}
	addrs := ledger.NewAddresses(programID)
	return &payoutService{
		log:          log.With("service", "PayoutService"),
		chain:        chain,
		flights:      flights,
		claims:       claims,
		journal:      journal,
		addrs:        addrs,
		builder:      ledger.NewBuilder(addrs),
		admin:        admin,
		concurrency:  utils.GetEnvAsInt("PAYOUT_CONCURRENCY", 4, log),
		batchTimeout: time.Duration(utils.GetEnvAsInt("PAYOUT_BATCH_TIMEOUT_SECONDS", 300, log)) * time.Second,
		now:          time.Now,
	}, nil
}

func (s *payoutService) EvaluateFlight(ctx context.Context, flightNumber, date string) (*types.FlightEvaluation, error) {
	// One flight batch never runs unbounded: a stalled RPC poll inside a
	// worker must not pin the whole sweep.
	if s.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.batchTimeout)
		defer cancel()
	}

	record, _, err := s.flights.GetFlightRecord(ctx, flightNumber, date)
	if err != nil {
		return nil, err
	}

	eval := &types.FlightEvaluation{
		RunID:        uuid.New(),
		FlightNumber: record.FlightNumber,
		Date:         record.Date,
		State:        types.FlightPending,
		DelayMinutes: record.DelayMinutes,
	}
	if record.ActualDepartureUnix == nil {
		return eval, nil
	}

	cfg, err := s.fetchConfig(ctx)
	if err != nil {
		return nil, err
	}
	policyIDs := record.PolicyIDs()
	if cfg.Paused {
		s.log.Warn("Protocol paused, skipping settlement", "flight", record.FlightNumber, "policies", len(policyIDs))
		for _, id := range policyIDs {
			eval.Outcomes = append(eval.Outcomes, types.PolicyOutcome{
				PolicyID: id, Code: types.OutcomeSkipped, Detail: "protocol paused",
			})
		}
		eval.State = types.FlightEvaluated
		if err := s.recordAttempts(ctx, eval); err != nil {
			s.log.Error("Failed to journal settlement attempts", "flight", record.FlightNumber, "error", err)
		}
		return eval, nil
	}

	vault, err := s.resolveVault(cfg)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		outcomes []types.PolicyOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, policyID := range policyIDs {
		id := policyID
		g.Go(func() error {
			out := s.settlePolicy(gctx, eval.RunID, cfg, vault, record, id)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	// Workers report failures through outcomes, never as group errors: one
	// bad policy must not abort its siblings.
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].PolicyID < outcomes[j].PolicyID })
	eval.Outcomes = outcomes
	eval.State = evalState(outcomes)

	if err := s.recordAttempts(ctx, eval); err != nil {
		s.log.Error("Failed to journal settlement attempts", "flight", record.FlightNumber, "error", err)
	}
	if err := s.writePayoutSignatures(ctx, record.FlightNumber, record.Date, outcomes); err != nil {
		s.log.Error("Failed to write payout signatures to flight record", "flight", record.FlightNumber, "error", err)
	}
	return eval, nil
}

// SettleActivePolicies scans all policy accounts on chain and evaluates
// every flight that still has active coverage. This is the watcher's sweep.
func (s *payoutService) SettleActivePolicies(ctx context.Context) ([]*types.FlightEvaluation, error) {
	accounts, err := s.chain.FetchProgramAccounts(ctx, s.addrs.ProgramID, ledger.PolicyDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("scan policies: %w", err)
	}

	flights := map[string]int{}
	for _, ka := range accounts {
		policy, err := ledger.DecodePolicy(ka.Data)
		if err != nil {
			s.log.Warn("Skipping undecodable policy account", "account", ka.Pubkey.String(), "error", err)
			continue
		}
		if policy.Status != types.PolicyStatusActive {
			continue
		}
		flights[policy.FlightNumber]++
	}

	numbers := make([]string, 0, len(flights))
	for n := range flights {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	var evals []*types.FlightEvaluation
	for _, number := range numbers {
		eval, err := s.EvaluateFlight(ctx, number, "")
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				s.log.Warn("No flight record for active policies", "flight", number, "policies", flights[number])
				continue
			}
			s.log.Error("Flight evaluation failed", "flight", number, "error", err)
			continue
		}
		evals = append(evals, eval)
	}
	return evals, nil
}

func (s *payoutService) fetchConfig(ctx context.Context) (*types.ProtocolConfig, error) {
	configPda, _, err := s.addrs.Config()
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, configPda)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	return ledger.DecodeConfig(raw)
}

func (s *payoutService) resolveVault(cfg *types.ProtocolConfig) (solana.PublicKey, error) {
	if v := strings.TrimSpace(utils.GetEnv("RISK_POOL_VAULT", "", s.log)); v != "" {
		return solana.PublicKeyFromBase58(v)
	}
	if cfg.HasVault {
		return cfg.RiskPoolVault, nil
	}
	return solana.PublicKey{}, fmt.Errorf("risk pool vault unknown: config has no vault and RISK_POOL_VAULT is unset")
}

func (s *payoutService) settlePolicy(ctx context.Context, runID uuid.UUID, cfg *types.ProtocolConfig, vault solana.PublicKey, record *types.FlightRecord, policyID uint64) types.PolicyOutcome {
	out := types.PolicyOutcome{PolicyID: policyID}

	claimed, err := s.claims.Acquire(ctx, policyID, runID.String())
	if err != nil {
		out.Code = types.OutcomeFailed
		out.Detail = fmt.Sprintf("claim: %v", err)
		return out
	}
	if !claimed {
		out.Code = types.OutcomeSkipped
		out.Detail = "claimed by another run"
		return out
	}
	defer func() {
		if err := s.claims.Release(ctx, policyID, runID.String()); err != nil {
			s.log.Warn("Failed to release policy claim", "policy_id", policyID, "error", err)
		}
	}()

	policy, err := s.fetchPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			out.Code = types.OutcomeFailed
			out.Detail = "policy account not found on chain"
			return out
		}
		out.Code = types.OutcomeFailed
		out.Detail = err.Error()
		return out
	}
	if policy.Status != types.PolicyStatusActive {
		out.Code = types.OutcomeAlreadySettled
		out.Detail = "status " + policy.Status.String()
		out.TxSignature = s.lookupPriorSignature(ctx, policyID)
		return out
	}

	product, err := s.fetchProduct(ctx, policy.ProductID)
	if err != nil {
		out.Code = types.OutcomeFailed
		out.Detail = err.Error()
		return out
	}

	decision, delay := EvaluatePolicy(policy, product, record.ActualDepartureUnix, s.now().Unix())
	out.DelayMinutes = delay
	switch decision {
	case DecisionNotYetObserved:
		out.Code = types.OutcomeSkipped
		out.Detail = "departure not observed"
		return out
	case DecisionNotActive:
		out.Code = types.OutcomeSkipped
		out.Detail = "product inactive"
		return out
	case DecisionBelowThreshold:
		out.Code = types.OutcomeBelowThreshold
		out.Detail = fmt.Sprintf("delay %d below threshold %d", delay, product.DelayThresholdMinutes)
		return out
	case DecisionWindowExpired:
		out.Code = types.OutcomeWindowExpired
		out.Detail = fmt.Sprintf("claim window of %dh elapsed", product.ClaimWindowHours)
		return out
	}

	return s.submitPayout(ctx, cfg, vault, policy, delay, out)
}

func (s *payoutService) submitPayout(ctx context.Context, cfg *types.ProtocolConfig, vault solana.PublicKey, policy *types.Policy, delay uint32, out types.PolicyOutcome) types.PolicyOutcome {
	holderUsdc, _, err := solana.FindAssociatedTokenAddress(policy.Policyholder, cfg.UsdcMint)
	if err != nil {
		out.Code = types.OutcomeFailed
		out.Detail = fmt.Sprintf("derive policyholder token account: %v", err)
		return out
	}
	ix, err := s.builder.ProcessPayout(s.admin.PublicKey(), vault, holderUsdc, policy.ID, policy.ProductID, delay)
	if err != nil {
		out.Code = types.OutcomeFailed
		out.Detail = fmt.Sprintf("build instruction: %v", err)
		return out
	}

	sig, err := s.chain.Submit(ctx, []solana.Instruction{ix}, s.admin)
	if err == nil {
		s.log.Info("Payout settled", "policy_id", policy.ID, "delay_minutes", delay, "signature", sig.String())
		out.Code = types.OutcomePaid
		out.TxSignature = sig.String()
		return out
	}

	switch {
	case errors.Is(err, solanaclient.ErrConfirmationTimeout):
		// Ambiguous: the transaction may have landed. Re-read before
		// deciding; never resend blindly.
		fresh, rerr := s.fetchPolicy(ctx, policy.ID)
		if rerr == nil && fresh.Status == types.PolicyStatusPaidOut {
			out.Code = types.OutcomePaid
			out.TxSignature = sig.String()
			out.Detail = "confirmed on re-read"
			return out
		}
		out.Code = types.OutcomePendingRetry
		out.TxSignature = sig.String()
		out.Detail = "confirmation timed out, chain still shows active"
		return out
	case errors.Is(err, solanaclient.ErrSimulationRejected):
		// A concurrent settler may have won the race; the program rejects
		// a second payout for a paid policy.
		fresh, rerr := s.fetchPolicy(ctx, policy.ID)
		if rerr == nil && fresh.Status == types.PolicyStatusPaidOut {
			out.Code = types.OutcomeAlreadySettled
			out.Detail = "settled by concurrent run"
			out.TxSignature = s.lookupPriorSignature(ctx, policy.ID)
			return out
		}
		out.Code = types.OutcomeFailed
		out.Detail = err.Error()
		return out
	case errors.Is(err, solanaclient.ErrBroadcastTimeout):
		out.Code = types.OutcomePendingRetry
		out.Detail = err.Error()
		return out
	default:
		out.Code = types.OutcomeFailed
		out.Detail = err.Error()
		return out
	}
}

func (s *payoutService) fetchPolicy(ctx context.Context, policyID uint64) (*types.Policy, error) {
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

func (s *payoutService) fetchProduct(ctx context.Context, productID uint64) (*types.Product, error) {
	pda, _, err := s.addrs.Product(productID)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeProduct(raw)
}

// lookupPriorSignature recovers the transaction signature of an earlier
// successful payout from the journal, if one was recorded. Only paid rows
// count; a later failed or pending attempt must not shadow the real payout.
func (s *payoutService) lookupPriorSignature(ctx context.Context, policyID uint64) string {
	attempt, err := s.journal.LatestPaidByPolicy(ctx, nil, policyID)
	if err != nil || attempt == nil {
		return ""
	}
	return attempt.TxSignature
}

func (s *payoutService) recordAttempts(ctx context.Context, eval *types.FlightEvaluation) error {
	attempts := make([]*types.SettlementAttempt, 0, len(eval.Outcomes))
	for _, out := range eval.Outcomes {
		attempts = append(attempts, &types.SettlementAttempt{
			RunID:        eval.RunID,
			PolicyID:     out.PolicyID,
			FlightNumber: eval.FlightNumber,
			FlightDate:   eval.Date,
			DelayMinutes: out.DelayMinutes,
			Outcome:      string(out.Code),
			TxSignature:  out.TxSignature,
			Detail:       out.Detail,
		})
	}
	_, err := s.journal.Create(ctx, nil, attempts)
	return err
}

// writePayoutSignatures pushes paid transaction signatures back into the
// flight record. The store enforces optimistic concurrency, so conflicts
// re-read and re-apply up to a bounded number of attempts.
func (s *payoutService) writePayoutSignatures(ctx context.Context, flightNumber, date string, outcomes []types.PolicyOutcome) error {
	sigs := map[uint64]string{}
	for _, out := range outcomes {
		if out.Code == types.OutcomePaid && out.TxSignature != "" {
			sigs[out.PolicyID] = out.TxSignature
		}
	}
	if len(sigs) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < gatewayWriteAttempts; attempt++ {
		record, rev, err := s.flights.GetFlightRecord(ctx, flightNumber, date)
		if err != nil {
			return err
		}
		changed := false
		nowUnix := s.now().Unix()
		for i := range record.Pnrs {
			sig, ok := sigs[record.Pnrs[i].PolicyID]
			if !ok || record.Pnrs[i].PayoutTxSig == sig {
				continue
			}
			record.Pnrs[i].PayoutTxSig = sig
			record.Pnrs[i].UpdatedAt = nowUnix
			changed = true
		}
		if !changed {
			return nil
		}
		record.UpdatedAt = nowUnix

		msg := fmt.Sprintf("record payout signatures for %s", flightNumber)
		if _, err := s.flights.UpsertFlightRecord(ctx, record, rev, msg); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("flight record update lost %d races: %w", gatewayWriteAttempts, lastErr)
}

func evalState(outcomes []types.PolicyOutcome) types.FlightEvaluationState {
	if len(outcomes) == 0 {
		return types.FlightSettled
	}
	for _, out := range outcomes {
		switch out.Code {
		case types.OutcomePendingRetry, types.OutcomeSkipped, types.OutcomeFailed:
			return types.FlightEvaluated
		}
	}
	return types.FlightSettled
}
