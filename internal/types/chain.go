package types

import (
	"github.com/gagliardetto/solana-go"
)

// PolicyStatus mirrors the on-chain enum. Active is the only initial state;
// PaidOut and Expired are terminal.
type PolicyStatus uint8

const (
	PolicyStatusActive PolicyStatus = iota
	PolicyStatusPaidOut
	PolicyStatusExpired
)

func (s PolicyStatus) String() string {
	switch s {
	case PolicyStatusActive:
		return "active"
	case PolicyStatusPaidOut:
		return "paid_out"
	case PolicyStatusExpired:
		return "expired"
	}
	return "unknown"
}

// ProtocolConfig is the program's singleton config account. Two on-wire
// layouts exist: the current one without a vault field and the legacy one
// that carries RiskPoolVault. HasVault reports which layout the bytes used.
type ProtocolConfig struct {
	Admin         solana.PublicKey `json:"admin"`
	UsdcMint      solana.PublicKey `json:"usdc_mint"`
	OracleProgram solana.PublicKey `json:"oracle_program"`
	RiskPoolVault solana.PublicKey `json:"risk_pool_vault,omitempty"`
	HasVault      bool             `json:"has_vault"`
	Paused        bool             `json:"paused"`
	Bump          uint8            `json:"bump"`
}

// Product is an insurance product. Coverage and premium amounts are
// fixed-point USDC with 6 decimal places.
type Product struct {
	ID                    uint64 `json:"id"`
	DelayThresholdMinutes uint32 `json:"delay_threshold_minutes"`
	CoverageAmount        uint64 `json:"coverage_amount"`
	PremiumRateBps        uint16 `json:"premium_rate_bps"`
	ClaimWindowHours      uint32 `json:"claim_window_hours"`
	Active                bool   `json:"active"`
	Bump                  uint8  `json:"bump"`
}

// Policy is a purchased flight-delay policy. CoverageAmount is copied from
// the product at purchase time, so later product edits never change it.
type Policy struct {
	ID             uint64           `json:"id"`
	Policyholder   solana.PublicKey `json:"policyholder"`
	ProductID      uint64           `json:"product_id"`
	FlightNumber   string           `json:"flight_number"`
	DepartureTime  int64            `json:"departure_time"`
	PremiumPaid    uint64           `json:"premium_paid"`
	CoverageAmount uint64           `json:"coverage_amount"`
	Status         PolicyStatus     `json:"status"`
	CreatedAt      int64            `json:"created_at"`
	PaidAt         *int64           `json:"paid_at,omitempty"`
	Bump           uint8            `json:"bump"`
}

// LiquidityProvider tracks a provider's deposits into the risk pool.
type LiquidityProvider struct {
	Provider       solana.PublicKey `json:"provider"`
	TotalDeposited uint64           `json:"total_deposited"`
	TotalWithdrawn uint64           `json:"total_withdrawn"`
	ActiveDeposit  uint64           `json:"active_deposit"`
	Bump           uint8            `json:"bump"`
}
