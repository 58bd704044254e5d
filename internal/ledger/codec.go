package ledger

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/alienx5499/zyura-backend/internal/types"
)

// Account layouts are fixed and must match the deployed program exactly.
// Every account starts with an 8-byte discriminator derived from the
// account name; it must match before any other byte is interpreted.
const (
	discriminatorLen = 8

	// Config is 106 bytes in the current layout and 138 in the legacy one
	// that still carries the risk pool vault. Total length alone selects
	// the layout; there is no version tag on the wire.
	configLenCurrent = discriminatorLen + 32 + 32 + 32 + 1 + 1
	configLenLegacy  = discriminatorLen + 32 + 32 + 32 + 32 + 1 + 1

	productLen           = discriminatorLen + 8 + 4 + 8 + 2 + 4 + 1 + 1
	liquidityProviderLen = discriminatorLen + 32 + 8 + 8 + 8 + 1

	// Policy is variable length: borsh string plus optional paid_at.
	policyMinLen = discriminatorLen + 8 + 32 + 8 + 4 + 8 + 8 + 8 + 1 + 8 + 1 + 1
)

// DecodeErrorKind classifies why account bytes could not be decoded.
type DecodeErrorKind string

const (
	DecodeTooShort              DecodeErrorKind = "too_short"
	DecodeDiscriminatorMismatch DecodeErrorKind = "discriminator_mismatch"
	DecodeUnknownLayout         DecodeErrorKind = "unknown_layout"
)

// DecodeError is returned whenever account bytes are malformed. It is fatal
// for the account in question but never silently defaulted.
type DecodeError struct {
	Kind    DecodeErrorKind
	Account string
	Detail  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s (%s)", e.Account, e.Kind, e.Detail)
}

func decodeErr(kind DecodeErrorKind, account, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Account: account, Detail: fmt.Sprintf(format, args...)}
}

// AccountDiscriminator returns the 8-byte discriminator for an account type.
func AccountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:discriminatorLen]
}

// InstructionDiscriminator returns the 8-byte discriminator for an
// instruction, from its snake_case name.
func InstructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:discriminatorLen]
}

var (
	ConfigDiscriminator            = AccountDiscriminator("Config")
	ProductDiscriminator           = AccountDiscriminator("Product")
	PolicyDiscriminator            = AccountDiscriminator("Policy")
	LiquidityProviderDiscriminator = AccountDiscriminator("LiquidityProvider")
)

func checkDiscriminator(account string, data, want []byte) *DecodeError {
	if len(data) < discriminatorLen {
		return decodeErr(DecodeTooShort, account, "have %d bytes, need at least %d", len(data), discriminatorLen)
	}
	if !bytes.Equal(data[:discriminatorLen], want) {
		return decodeErr(DecodeDiscriminatorMismatch, account, "got %x want %x", data[:discriminatorLen], want)
	}
	return nil
}

// DecodeConfig decodes a Config account, selecting the current or legacy
// layout by total byte length. Any other length is an unknown layout.
func DecodeConfig(data []byte) (*types.ProtocolConfig, error) {
	if err := checkDiscriminator("Config", data, ConfigDiscriminator); err != nil {
		return nil, err
	}
	switch len(data) {
	case configLenCurrent, configLenLegacy:
	default:
		return nil, decodeErr(DecodeUnknownLayout, "Config", "length %d is neither %d (current) nor %d (legacy)", len(data), configLenCurrent, configLenLegacy)
	}

	cfg := &types.ProtocolConfig{
		Admin:         solana.PublicKeyFromBytes(data[8:40]),
		UsdcMint:      solana.PublicKeyFromBytes(data[40:72]),
		OracleProgram: solana.PublicKeyFromBytes(data[72:104]),
	}
	tail := 104
	if len(data) == configLenLegacy {
		cfg.RiskPoolVault = solana.PublicKeyFromBytes(data[104:136])
		cfg.HasVault = true
		tail = 136
	}
	cfg.Paused = data[tail] == 1
	cfg.Bump = data[tail+1]
	return cfg, nil
}

// DecodeProduct decodes a Product account.
func DecodeProduct(data []byte) (*types.Product, error) {
	if err := checkDiscriminator("Product", data, ProductDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < productLen {
		return nil, decodeErr(DecodeTooShort, "Product", "have %d bytes, need %d", len(data), productLen)
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:])
	var (
		p   types.Product
		err error
	)
	if p.ID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "id: %v", err)
	}
	if p.DelayThresholdMinutes, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "delay_threshold_minutes: %v", err)
	}
	if p.CoverageAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "coverage_amount: %v", err)
	}
	if p.PremiumRateBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "premium_rate_bps: %v", err)
	}
	if p.ClaimWindowHours, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "claim_window_hours: %v", err)
	}
	if p.Active, err = dec.ReadBool(); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "active: %v", err)
	}
	if p.Bump, err = dec.ReadByte(); err != nil {
		return nil, decodeErr(DecodeTooShort, "Product", "bump: %v", err)
	}
	return &p, nil
}

// DecodePolicy decodes a Policy account. The flight number is a borsh
// string (u32 length prefix) and paid_at is an optional i64.
func DecodePolicy(data []byte) (*types.Policy, error) {
	if err := checkDiscriminator("Policy", data, PolicyDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < policyMinLen {
		return nil, decodeErr(DecodeTooShort, "Policy", "have %d bytes, need at least %d", len(data), policyMinLen)
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:])
	var (
		p   types.Policy
		err error
	)
	if p.ID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "id: %v", err)
	}
	holder, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "policyholder: %v", err)
	}
	p.Policyholder = solana.PublicKeyFromBytes(holder)
	if p.ProductID, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "product_id: %v", err)
	}
	flightLen, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "flight_number length: %v", err)
	}
	if flightLen > 64 {
		return nil, decodeErr(DecodeUnknownLayout, "Policy", "flight_number length %d out of range", flightLen)
	}
	flight, err := dec.ReadNBytes(int(flightLen))
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "flight_number: %v", err)
	}
	p.FlightNumber = string(flight)
	if p.DepartureTime, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "departure_time: %v", err)
	}
	if p.PremiumPaid, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "premium_paid: %v", err)
	}
	if p.CoverageAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "coverage_amount: %v", err)
	}
	status, err := dec.ReadByte()
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "status: %v", err)
	}
	if status > uint8(types.PolicyStatusExpired) {
		return nil, decodeErr(DecodeUnknownLayout, "Policy", "status tag %d out of range", status)
	}
	p.Status = types.PolicyStatus(status)
	if p.CreatedAt, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "created_at: %v", err)
	}
	paidTag, err := dec.ReadByte()
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "paid_at tag: %v", err)
	}
	switch paidTag {
	case 0:
	case 1:
		paidAt, err := dec.ReadInt64(bin.LE)
		if err != nil {
			return nil, decodeErr(DecodeTooShort, "Policy", "paid_at: %v", err)
		}
		p.PaidAt = &paidAt
	default:
		return nil, decodeErr(DecodeUnknownLayout, "Policy", "paid_at option tag %d", paidTag)
	}
	if p.Bump, err = dec.ReadByte(); err != nil {
		return nil, decodeErr(DecodeTooShort, "Policy", "bump: %v", err)
	}
	return &p, nil
}

// DecodeLiquidityProvider decodes a LiquidityProvider account.
func DecodeLiquidityProvider(data []byte) (*types.LiquidityProvider, error) {
	if err := checkDiscriminator("LiquidityProvider", data, LiquidityProviderDiscriminator); err != nil {
		return nil, err
	}
	if len(data) < liquidityProviderLen {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "have %d bytes, need %d", len(data), liquidityProviderLen)
	}
	dec := bin.NewBorshDecoder(data[discriminatorLen:])
	var (
		lp  types.LiquidityProvider
		err error
	)
	provider, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "provider: %v", err)
	}
	lp.Provider = solana.PublicKeyFromBytes(provider)
	if lp.TotalDeposited, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "total_deposited: %v", err)
	}
	if lp.TotalWithdrawn, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "total_withdrawn: %v", err)
	}
	if lp.ActiveDeposit, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "active_deposit: %v", err)
	}
	if lp.Bump, err = dec.ReadByte(); err != nil {
		return nil, decodeErr(DecodeTooShort, "LiquidityProvider", "bump: %v", err)
	}
	return &lp, nil
}

// EncodeConfig renders a Config account in its current or legacy layout.
// Used by tooling and tests; the program itself writes these accounts.
func EncodeConfig(cfg *types.ProtocolConfig) []byte {
	size := configLenCurrent
	if cfg.HasVault {
		size = configLenLegacy
	}
	out := make([]byte, 0, size)
	out = append(out, ConfigDiscriminator...)
	out = append(out, cfg.Admin.Bytes()...)
	out = append(out, cfg.UsdcMint.Bytes()...)
	out = append(out, cfg.OracleProgram.Bytes()...)
	if cfg.HasVault {
		out = append(out, cfg.RiskPoolVault.Bytes()...)
	}
	out = append(out, boolByte(cfg.Paused), cfg.Bump)
	return out
}

// EncodeProduct renders a Product account.
func EncodeProduct(p *types.Product) []byte {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	_, _ = buf.Write(ProductDiscriminator)
	_ = enc.WriteUint64(p.ID, bin.LE)
	_ = enc.WriteUint32(p.DelayThresholdMinutes, bin.LE)
	_ = enc.WriteUint64(p.CoverageAmount, bin.LE)
	_ = enc.WriteUint16(p.PremiumRateBps, bin.LE)
	_ = enc.WriteUint32(p.ClaimWindowHours, bin.LE)
	_ = enc.WriteBool(p.Active)
	_ = enc.WriteByte(p.Bump)
	return buf.Bytes()
}

// EncodePolicy renders a Policy account.
func EncodePolicy(p *types.Policy) []byte {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	_, _ = buf.Write(PolicyDiscriminator)
	_ = enc.WriteUint64(p.ID, bin.LE)
	_ = enc.WriteBytes(p.Policyholder.Bytes(), false)
	_ = enc.WriteUint64(p.ProductID, bin.LE)
	_ = enc.WriteUint32(uint32(len(p.FlightNumber)), bin.LE)
	_ = enc.WriteBytes([]byte(p.FlightNumber), false)
	_ = enc.WriteInt64(p.DepartureTime, bin.LE)
	_ = enc.WriteUint64(p.PremiumPaid, bin.LE)
	_ = enc.WriteUint64(p.CoverageAmount, bin.LE)
	_ = enc.WriteByte(uint8(p.Status))
	_ = enc.WriteInt64(p.CreatedAt, bin.LE)
	if p.PaidAt != nil {
		_ = enc.WriteByte(1)
		_ = enc.WriteInt64(*p.PaidAt, bin.LE)
	} else {
		_ = enc.WriteByte(0)
	}
	_ = enc.WriteByte(p.Bump)
	return buf.Bytes()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
