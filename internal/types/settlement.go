package types

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeCode classifies the result of evaluating one policy in a batch.
type OutcomeCode string

const (
	OutcomePaid           OutcomeCode = "paid"
	OutcomeAlreadySettled OutcomeCode = "already_settled"
	OutcomeBelowThreshold OutcomeCode = "below_threshold"
	OutcomeWindowExpired  OutcomeCode = "window_expired"
	OutcomePendingRetry   OutcomeCode = "pending_retry"
	OutcomeSkipped        OutcomeCode = "skipped"
	OutcomeFailed         OutcomeCode = "failed"
)

// PolicyOutcome is the per-policy result of one flight evaluation.
type PolicyOutcome struct {
	PolicyID     uint64      `json:"policy_id"`
	Code         OutcomeCode `json:"code"`
	TxSignature  string      `json:"tx_signature,omitempty"`
	DelayMinutes uint32      `json:"delay_minutes"`
	Detail       string      `json:"detail,omitempty"`
}

// FlightEvaluationState tracks where a flight key sits in the pipeline.
type FlightEvaluationState string

const (
	FlightPending   FlightEvaluationState = "pending"
	FlightEvaluated FlightEvaluationState = "evaluated"
	FlightSettled   FlightEvaluationState = "settled"
)

// FlightEvaluation is the batch result for one (flight number, date) key.
type FlightEvaluation struct {
	RunID        uuid.UUID             `json:"run_id"`
	FlightNumber string                `json:"flight_number"`
	Date         string                `json:"date"`
	State        FlightEvaluationState `json:"state"`
	DelayMinutes uint32                `json:"delay_minutes"`
	Outcomes     []PolicyOutcome       `json:"outcomes"`
}

// SettlementAttempt is the journal row recorded for every payout attempt.
// It is the cross-run dedup guard and the audit trail; ledger state stays
// the source of truth.
type SettlementAttempt struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID        uuid.UUID `gorm:"type:uuid;index;column:run_id" json:"run_id"`
	PolicyID     uint64    `gorm:"index;not null;column:policy_id" json:"policy_id"`
	FlightNumber string    `gorm:"column:flight_number" json:"flight_number"`
	FlightDate   string    `gorm:"column:flight_date" json:"flight_date"`
	DelayMinutes uint32    `gorm:"column:delay_minutes" json:"delay_minutes"`
	Outcome      string    `gorm:"not null;column:outcome" json:"outcome"`
	TxSignature  string    `gorm:"column:tx_signature" json:"tx_signature"`
	Detail       string    `gorm:"column:detail" json:"detail"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (SettlementAttempt) TableName() string {
	return "settlement_attempt"
}
