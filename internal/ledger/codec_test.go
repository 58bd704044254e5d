package ledger

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/alienx5499/zyura-backend/internal/types"
)

func newKey(fill byte) solana.PublicKey {
	var b [32]byte
	for i := range b {
		b[i] = fill
	}
	return solana.PublicKeyFromBytes(b[:])
}

func TestDecodeConfigCurrentLayout(t *testing.T) {
	in := &types.ProtocolConfig{
		Admin:         newKey(1),
		UsdcMint:      newKey(2),
		OracleProgram: newKey(3),
		Paused:        false,
		Bump:          254,
	}
	raw := EncodeConfig(in)
	if len(raw) != 106 {
		t.Fatalf("current layout should be 106 bytes, got %d", len(raw))
	}

	got, err := DecodeConfig(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HasVault {
		t.Fatalf("current layout must not carry a vault")
	}
	if !got.Admin.Equals(in.Admin) || !got.UsdcMint.Equals(in.UsdcMint) || !got.OracleProgram.Equals(in.OracleProgram) {
		t.Fatalf("key fields mismatch: %+v", got)
	}
	if got.Paused != false || got.Bump != 254 {
		t.Fatalf("tail fields mismatch: paused=%v bump=%d", got.Paused, got.Bump)
	}
}

func TestDecodeConfigLegacyLayout(t *testing.T) {
	in := &types.ProtocolConfig{
		Admin:         newKey(1),
		UsdcMint:      newKey(2),
		OracleProgram: newKey(3),
		RiskPoolVault: newKey(4),
		HasVault:      true,
		Paused:        true,
		Bump:          253,
	}
	raw := EncodeConfig(in)
	if len(raw) != 138 {
		t.Fatalf("legacy layout should be 138 bytes, got %d", len(raw))
	}

	got, err := DecodeConfig(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasVault || !got.RiskPoolVault.Equals(in.RiskPoolVault) {
		t.Fatalf("legacy vault not decoded: %+v", got)
	}
	if !got.Paused || got.Bump != 253 {
		t.Fatalf("tail fields mismatch: paused=%v bump=%d", got.Paused, got.Bump)
	}
}

func TestDecodeConfigRejectsOtherLengths(t *testing.T) {
	base := EncodeConfig(&types.ProtocolConfig{Admin: newKey(1), UsdcMint: newKey(2), OracleProgram: newKey(3)})

	for _, n := range []int{105, 107, 120, 137, 139} {
		raw := make([]byte, n)
		copy(raw, base)
		_, err := DecodeConfig(raw)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("length %d: expected DecodeError, got %v", n, err)
		}
		if de.Kind != DecodeUnknownLayout {
			t.Fatalf("length %d: expected unknown_layout, got %s", n, de.Kind)
		}
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := DecodeConfig([]byte{1, 2, 3})
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != DecodeTooShort {
		t.Fatalf("expected too_short, got %v", err)
	}
}

func TestDecodeRejectsDiscriminatorMismatch(t *testing.T) {
	// Product bytes handed to the policy decoder must fail loudly, not
	// be misread as a policy.
	raw := EncodeProduct(&types.Product{ID: 1, DelayThresholdMinutes: 60, CoverageAmount: 100_000_000})
	_, err := DecodePolicy(raw)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Kind != DecodeDiscriminatorMismatch {
		t.Fatalf("expected discriminator_mismatch, got %s", de.Kind)
	}
}

func TestProductRoundTrip(t *testing.T) {
	for _, in := range []*types.Product{
		{ID: 0, DelayThresholdMinutes: 0, CoverageAmount: 0, PremiumRateBps: 0, ClaimWindowHours: 0, Active: false, Bump: 0},
		{ID: 1, DelayThresholdMinutes: 60, CoverageAmount: 100_000_000, PremiumRateBps: 500, ClaimWindowHours: 24, Active: true, Bump: 255},
		{ID: ^uint64(0), DelayThresholdMinutes: ^uint32(0), CoverageAmount: ^uint64(0), PremiumRateBps: ^uint16(0), ClaimWindowHours: ^uint32(0), Active: true, Bump: 1},
	} {
		got, err := DecodeProduct(EncodeProduct(in))
		if err != nil {
			t.Fatalf("round trip product %d: %v", in.ID, err)
		}
		if *got != *in {
			t.Fatalf("round trip product %d: got %+v want %+v", in.ID, got, in)
		}
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	paidAt := int64(1762270000)
	for _, in := range []*types.Policy{
		{ID: 42, Policyholder: newKey(9), ProductID: 1, FlightNumber: "AA123", DepartureTime: 1762266600, PremiumPaid: 5_000_000, CoverageAmount: 100_000_000, Status: types.PolicyStatusActive, CreatedAt: 1762000000, Bump: 252},
		{ID: 0, Policyholder: newKey(1), ProductID: 0, FlightNumber: "", DepartureTime: 0, Status: types.PolicyStatusExpired, Bump: 0},
		{ID: ^uint64(0), Policyholder: newKey(7), ProductID: ^uint64(0), FlightNumber: "UA9999", DepartureTime: -1, Status: types.PolicyStatusPaidOut, PaidAt: &paidAt, Bump: 255},
	} {
		got, err := DecodePolicy(EncodePolicy(in))
		if err != nil {
			t.Fatalf("round trip policy %d: %v", in.ID, err)
		}
		if got.ID != in.ID || !got.Policyholder.Equals(in.Policyholder) || got.ProductID != in.ProductID ||
			got.FlightNumber != in.FlightNumber || got.DepartureTime != in.DepartureTime ||
			got.PremiumPaid != in.PremiumPaid || got.CoverageAmount != in.CoverageAmount ||
			got.Status != in.Status || got.CreatedAt != in.CreatedAt || got.Bump != in.Bump {
			t.Fatalf("round trip policy %d: got %+v want %+v", in.ID, got, in)
		}
		if (got.PaidAt == nil) != (in.PaidAt == nil) {
			t.Fatalf("round trip policy %d: paid_at presence mismatch", in.ID)
		}
		if got.PaidAt != nil && *got.PaidAt != *in.PaidAt {
			t.Fatalf("round trip policy %d: paid_at %d want %d", in.ID, *got.PaidAt, *in.PaidAt)
		}
	}
}

func TestPolicyStatusTagOutOfRange(t *testing.T) {
	raw := EncodePolicy(&types.Policy{ID: 1, Policyholder: newKey(1), FlightNumber: "AA123"})
	// Status byte sits right after the fixed-width fields and the string.
	statusOff := 8 + 8 + 32 + 8 + 4 + len("AA123") + 8 + 8 + 8
	raw[statusOff] = 9
	_, err := DecodePolicy(raw)
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != DecodeUnknownLayout {
		t.Fatalf("expected unknown_layout for bad status tag, got %v", err)
	}
}

func TestLiquidityProviderDecode(t *testing.T) {
	raw := make([]byte, 0, 65)
	raw = append(raw, LiquidityProviderDiscriminator...)
	raw = append(raw, newKey(5).Bytes()...)
	raw = append(raw, u64le(1_000_000)...)
	raw = append(raw, u64le(250_000)...)
	raw = append(raw, u64le(750_000)...)
	raw = append(raw, 251)

	lp, err := DecodeLiquidityProvider(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !lp.Provider.Equals(newKey(5)) || lp.TotalDeposited != 1_000_000 || lp.TotalWithdrawn != 250_000 || lp.ActiveDeposit != 750_000 || lp.Bump != 251 {
		t.Fatalf("unexpected decode: %+v", lp)
	}
}
