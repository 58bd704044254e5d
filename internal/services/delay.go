package services

import (
	"github.com/alienx5499/zyura-backend/internal/types"
)

// Decision is the settlement verdict for one policy at one point in time.
type Decision string

const (
	DecisionNotYetObserved Decision = "not_yet_observed"
	DecisionNotActive      Decision = "not_active"
	DecisionEligible       Decision = "eligible"
	DecisionBelowThreshold Decision = "below_threshold"
	DecisionWindowExpired  Decision = "window_expired"
)

// DelayMinutes converts a scheduled/actual departure pair into whole delayed
// minutes. Early or on-time departures are zero, never negative; partial
// minutes round down.
func DelayMinutes(scheduledUnix, actualUnix int64) uint32 {
	if actualUnix <= scheduledUnix {
		return 0
	}
	return uint32((actualUnix - scheduledUnix) / 60)
}

// EvaluatePolicy decides what should happen to a policy given the product it
// was purchased under, the observed departure (nil when not yet observed) and
// the current time. It is pure: callers fetch state, this ranks it.
//
// The claim window runs from policy purchase, not from departure. A delay at
// or above the threshold is only payable while the window is open; once the
// window closes the policy is expired regardless of delay.
func EvaluatePolicy(policy *types.Policy, product *types.Product, actualDepartureUnix *int64, nowUnix int64) (Decision, uint32) {
	if policy.Status != types.PolicyStatusActive {
		return DecisionNotActive, 0
	}
	if actualDepartureUnix == nil {
		return DecisionNotYetObserved, 0
	}
	delay := DelayMinutes(policy.DepartureTime, *actualDepartureUnix)

	windowEnd := policy.CreatedAt + int64(product.ClaimWindowHours)*3600
	if nowUnix > windowEnd {
		return DecisionWindowExpired, delay
	}
	if !product.Active {
		return DecisionNotActive, delay
	}
	if delay >= product.DelayThresholdMinutes {
		return DecisionEligible, delay
	}
	return DecisionBelowThreshold, delay
}
