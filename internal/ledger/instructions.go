package ledger

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators, fixed by the deployed program.
var (
	ixInitialize        = InstructionDiscriminator("initialize")
	ixCreateProduct     = InstructionDiscriminator("create_product")
	ixUpdateProduct     = InstructionDiscriminator("update_product")
	ixDepositLiquidity  = InstructionDiscriminator("deposit_liquidity")
	ixWithdrawLiquidity = InstructionDiscriminator("withdraw_liquidity")
	ixProcessPayout     = InstructionDiscriminator("process_payout")
	ixSetPauseStatus    = InstructionDiscriminator("set_pause_status")
)

// Builder constructs program instructions. Account lists are positional and
// must match the program's Accounts structs exactly; reordering is a
// protocol violation, not something this layer can recover from.
type Builder struct {
	addrs Addresses
}

func NewBuilder(addrs Addresses) Builder {
	return Builder{addrs: addrs}
}

func (b Builder) instruction(disc []byte, accounts solana.AccountMetaSlice, write func(*bin.Encoder) error) (solana.Instruction, error) {
	for i, acc := range accounts {
		if acc == nil || acc.PublicKey.IsZero() {
			return nil, fmt.Errorf("account reference %d is unset", i)
		}
	}
	var buf bytes.Buffer
	buf.Write(disc)
	enc := bin.NewBorshEncoder(&buf)
	if write != nil {
		if err := write(enc); err != nil {
			return nil, fmt.Errorf("encode instruction args: %w", err)
		}
	}
	return solana.NewInstruction(b.addrs.ProgramID, accounts, buf.Bytes()), nil
}

// Initialize creates the singleton config account.
func (b Builder) Initialize(payer, admin, usdcMint, oracleProgram solana.PublicKey) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	return b.instruction(ixInitialize, accounts, func(enc *bin.Encoder) error {
		if err := enc.WriteBytes(admin.Bytes(), false); err != nil {
			return err
		}
		if err := enc.WriteBytes(usdcMint.Bytes(), false); err != nil {
			return err
		}
		return enc.WriteBytes(oracleProgram.Bytes(), false)
	})
}

// ProductParams carries create_product/update_product arguments in
// declaration order.
type ProductParams struct {
	ID                    uint64
	DelayThresholdMinutes uint32
	CoverageAmount        uint64
	PremiumRateBps        uint16
	ClaimWindowHours      uint32
}

func writeProductParams(enc *bin.Encoder, p ProductParams) error {
	if err := enc.WriteUint64(p.ID, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint32(p.DelayThresholdMinutes, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.CoverageAmount, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint16(p.PremiumRateBps, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint32(p.ClaimWindowHours, bin.LE)
}

// CreateProduct creates an immutable insurance product.
func (b Builder) CreateProduct(admin solana.PublicKey, params ProductParams) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	productPda, _, err := b.addrs.Product(params.ID)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(productPda).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	return b.instruction(ixCreateProduct, accounts, func(enc *bin.Encoder) error {
		return writeProductParams(enc, params)
	})
}

// UpdateProduct updates thresholds on an existing product. Policies already
// purchased keep their copied coverage amount.
func (b Builder) UpdateProduct(admin solana.PublicKey, params ProductParams) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	productPda, _, err := b.addrs.Product(params.ID)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(productPda).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}
	return b.instruction(ixUpdateProduct, accounts, func(enc *bin.Encoder) error {
		return writeProductParams(enc, params)
	})
}

// DepositLiquidity moves USDC from the user into the risk pool vault.
func (b Builder) DepositLiquidity(user, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	lpPda, _, err := b.addrs.LiquidityProvider(user)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(lpPda).WRITE(),
		solana.Meta(riskPoolVault).WRITE(),
		solana.Meta(userUsdc).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return b.instruction(ixDepositLiquidity, accounts, func(enc *bin.Encoder) error {
		return enc.WriteUint64(amount, bin.LE)
	})
}

// WithdrawLiquidity returns USDC from the risk pool to the provider.
// The admin authorizes the vault outflow.
func (b Builder) WithdrawLiquidity(user, admin, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	lpPda, _, err := b.addrs.LiquidityProvider(user)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(lpPda).WRITE(),
		solana.Meta(riskPoolVault).WRITE(),
		solana.Meta(userUsdc).WRITE(),
		solana.Meta(user).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}
	return b.instruction(ixWithdrawLiquidity, accounts, func(enc *bin.Encoder) error {
		return enc.WriteUint64(amount, bin.LE)
	})
}

// ProcessPayout settles one policy: the program transfers the coverage
// amount from the vault to the policyholder and flips status to PaidOut.
func (b Builder) ProcessPayout(admin, riskPoolVault, policyholderUsdc solana.PublicKey, policyID, productID uint64, delayMinutes uint32) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	productPda, _, err := b.addrs.Product(productID)
	if err != nil {
		return nil, err
	}
	policyPda, _, err := b.addrs.Policy(policyID)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(productPda).WRITE(),
		solana.Meta(policyPda).WRITE(),
		solana.Meta(riskPoolVault).WRITE(),
		solana.Meta(policyholderUsdc).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}
	return b.instruction(ixProcessPayout, accounts, func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(policyID, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint32(delayMinutes, bin.LE)
	})
}

// SetPauseStatus toggles the protocol-wide pause flag.
func (b Builder) SetPauseStatus(admin solana.PublicKey, paused bool) (solana.Instruction, error) {
	configPda, _, err := b.addrs.Config()
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(configPda).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
	}
	return b.instruction(ixSetPauseStatus, accounts, func(enc *bin.Encoder) error {
		return enc.WriteBool(paused)
	})
}
