package services

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	solanaclient "github.com/alienx5499/zyura-backend/internal/clients/solana"
	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/types"
)

// ProtocolService covers protocol administration and chain-state reads.
// Mutations are admin-signed single-instruction transactions.
type ProtocolService interface {
	Initialize(ctx context.Context, admin, usdcMint, oracleProgram solana.PublicKey) (solana.Signature, error)
	CreateProduct(ctx context.Context, params ledger.ProductParams) (solana.Signature, error)
	UpdateProduct(ctx context.Context, params ledger.ProductParams) (solana.Signature, error)
	DepositLiquidity(ctx context.Context, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Signature, error)
	WithdrawLiquidity(ctx context.Context, user, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Signature, error)
	SetPaused(ctx context.Context, paused bool) (solana.Signature, error)

	Config(ctx context.Context) (*types.ProtocolConfig, error)
	Product(ctx context.Context, id uint64) (*types.Product, error)
	Policy(ctx context.Context, id uint64) (*types.Policy, error)
	LiquidityProvider(ctx context.Context, provider solana.PublicKey) (*types.LiquidityProvider, error)
}

type protocolService struct {
	log     *logger.Logger
	chain   solanaclient.Client
	addrs   ledger.Addresses
	builder ledger.Builder
	admin   solana.PrivateKey
}

func NewProtocolService(log *logger.Logger, chain solanaclient.Client, programID solana.PublicKey, admin solana.PrivateKey) (ProtocolService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if chain == nil {
		return nil, fmt.Errorf("chain client required")
	}
	if programID.IsZero() {
		return nil, fmt.Errorf("program id required")
	}
	addrs := ledger.NewAddresses(programID)
	return &protocolService{
		log:     log.With("service", "ProtocolService"),
		chain:   chain,
		addrs:   addrs,
		builder: ledger.NewBuilder(addrs),
		admin:   admin,
	}, nil
}

var errNoAdminKey = fmt.Errorf("admin key not configured")

func (s *protocolService) send(ctx context.Context, ix solana.Instruction, err error) (solana.Signature, error) {
	if err != nil {
		return solana.Signature{}, err
	}
	return s.chain.Submit(ctx, []solana.Instruction{ix}, s.admin)
}

func (s *protocolService) Initialize(ctx context.Context, admin, usdcMint, oracleProgram solana.PublicKey) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.Initialize(s.admin.PublicKey(), admin, usdcMint, oracleProgram)
	return s.send(ctx, ix, err)
}

func (s *protocolService) CreateProduct(ctx context.Context, params ledger.ProductParams) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.CreateProduct(s.admin.PublicKey(), params)
	return s.send(ctx, ix, err)
}

func (s *protocolService) UpdateProduct(ctx context.Context, params ledger.ProductParams) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.UpdateProduct(s.admin.PublicKey(), params)
	return s.send(ctx, ix, err)
}

// DepositLiquidity deposits from the admin's own wallet; liquidity from
// third-party wallets is signed client-side, not through this service.
func (s *protocolService) DepositLiquidity(ctx context.Context, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.DepositLiquidity(s.admin.PublicKey(), riskPoolVault, userUsdc, amount)
	return s.send(ctx, ix, err)
}

func (s *protocolService) WithdrawLiquidity(ctx context.Context, user, riskPoolVault, userUsdc solana.PublicKey, amount uint64) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.WithdrawLiquidity(user, s.admin.PublicKey(), riskPoolVault, userUsdc, amount)
	return s.send(ctx, ix, err)
}

func (s *protocolService) SetPaused(ctx context.Context, paused bool) (solana.Signature, error) {
	if s.admin == nil {
		return solana.Signature{}, errNoAdminKey
	}
	ix, err := s.builder.SetPauseStatus(s.admin.PublicKey(), paused)
	return s.send(ctx, ix, err)
}

func (s *protocolService) Config(ctx context.Context) (*types.ProtocolConfig, error) {
	pda, _, err := s.addrs.Config()
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeConfig(raw)
}

func (s *protocolService) Product(ctx context.Context, id uint64) (*types.Product, error) {
	pda, _, err := s.addrs.Product(id)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeProduct(raw)
}

func (s *protocolService) Policy(ctx context.Context, id uint64) (*types.Policy, error) {
	pda, _, err := s.addrs.Policy(id)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodePolicy(raw)
}

func (s *protocolService) LiquidityProvider(ctx context.Context, provider solana.PublicKey) (*types.LiquidityProvider, error) {
	pda, _, err := s.addrs.LiquidityProvider(provider)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.FetchAccount(ctx, pda)
	if err != nil {
		return nil, err
	}
	return ledger.DecodeLiquidityProvider(raw)
}
