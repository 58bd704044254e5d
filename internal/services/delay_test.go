package services

import (
	"testing"

	"github.com/alienx5499/zyura-backend/internal/types"
)

func TestDelayMinutes(t *testing.T) {
	cases := []struct {
		name      string
		scheduled int64
		actual    int64
		want      uint32
	}{
		{"on time", 1000, 1000, 0},
		{"early departure clamps to zero", 1000, 400, 0},
		{"partial minute rounds down", 1000, 1000 + 59, 0},
		{"exactly one minute", 1000, 1000 + 60, 1},
		{"ninety minutes", 1000, 1000 + 90*60, 90},
	}
	for _, tc := range cases {
		if got := DelayMinutes(tc.scheduled, tc.actual); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestEvaluatePolicy(t *testing.T) {
	const (
		createdAt = int64(1_762_000_000)
		departure = createdAt + 6*3600
	)
	product := &types.Product{
		ID:                    1,
		DelayThresholdMinutes: 60,
		CoverageAmount:        100_000_000,
		ClaimWindowHours:      24,
		Active:                true,
	}
	policy := func(status types.PolicyStatus) *types.Policy {
		return &types.Policy{
			ID:            42,
			ProductID:     1,
			FlightNumber:  "AA123",
			DepartureTime: departure,
			Status:        status,
			CreatedAt:     createdAt,
		}
	}
	actual := func(delayMin int64) *int64 {
		v := departure + delayMin*60
		return &v
	}
	inWindow := createdAt + 12*3600
	afterWindow := createdAt + 30*3600

	t.Run("no observed departure", func(t *testing.T) {
		d, _ := EvaluatePolicy(policy(types.PolicyStatusActive), product, nil, inWindow)
		if d != DecisionNotYetObserved {
			t.Fatalf("got %s", d)
		}
	})

	t.Run("zero delay is not eligible", func(t *testing.T) {
		d, delay := EvaluatePolicy(policy(types.PolicyStatusActive), product, actual(0), inWindow)
		if d != DecisionBelowThreshold || delay != 0 {
			t.Fatalf("got %s delay=%d", d, delay)
		}
	})

	t.Run("delay at threshold pays", func(t *testing.T) {
		d, delay := EvaluatePolicy(policy(types.PolicyStatusActive), product, actual(60), inWindow)
		if d != DecisionEligible || delay != 60 {
			t.Fatalf("got %s delay=%d", d, delay)
		}
	})

	t.Run("delay one under threshold does not pay", func(t *testing.T) {
		d, delay := EvaluatePolicy(policy(types.PolicyStatusActive), product, actual(59), inWindow)
		if d != DecisionBelowThreshold || delay != 59 {
			t.Fatalf("got %s delay=%d", d, delay)
		}
	})

	t.Run("window expiry beats eligibility", func(t *testing.T) {
		d, delay := EvaluatePolicy(policy(types.PolicyStatusActive), product, actual(90), afterWindow)
		if d != DecisionWindowExpired || delay != 90 {
			t.Fatalf("got %s delay=%d", d, delay)
		}
	})

	t.Run("window boundary is inclusive", func(t *testing.T) {
		d, _ := EvaluatePolicy(policy(types.PolicyStatusActive), product, actual(90), createdAt+24*3600)
		if d != DecisionEligible {
			t.Fatalf("got %s", d)
		}
	})

	t.Run("paid out policy is terminal", func(t *testing.T) {
		d, _ := EvaluatePolicy(policy(types.PolicyStatusPaidOut), product, actual(90), inWindow)
		if d != DecisionNotActive {
			t.Fatalf("got %s", d)
		}
	})

	t.Run("inactive product blocks payout", func(t *testing.T) {
		inactive := *product
		inactive.Active = false
		d, _ := EvaluatePolicy(policy(types.PolicyStatusActive), &inactive, actual(90), inWindow)
		if d != DecisionNotActive {
			t.Fatalf("got %s", d)
		}
	})
}
