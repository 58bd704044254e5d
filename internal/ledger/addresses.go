package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed labels match the on-chain program's PDA seeds byte for byte.
var (
	seedConfig            = []byte("config")
	seedProduct           = []byte("product")
	seedPolicy            = []byte("policy")
	seedLiquidityProvider = []byte("liquidity_provider")
	seedMintAuthority     = []byte("policy_mint_authority")
)

// Addresses derives the program's account addresses. Derivation is pure and
// deterministic; the only failure mode is malformed seeds, which is a
// programmer error and not retryable.
type Addresses struct {
	ProgramID solana.PublicKey
}

func NewAddresses(programID solana.PublicKey) Addresses {
	return Addresses{ProgramID: programID}
}

func (a Addresses) derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, a.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive address: %w", err)
	}
	return addr, bump, nil
}

// Config returns the singleton config account address.
func (a Addresses) Config() (solana.PublicKey, uint8, error) {
	return a.derive(seedConfig)
}

// Product returns the product account address for the given id.
func (a Addresses) Product(id uint64) (solana.PublicKey, uint8, error) {
	return a.derive(seedProduct, u64le(id))
}

// Policy returns the policy account address for the given id.
func (a Addresses) Policy(id uint64) (solana.PublicKey, uint8, error) {
	return a.derive(seedPolicy, u64le(id))
}

// LiquidityProvider returns the provider account address for a wallet.
func (a Addresses) LiquidityProvider(provider solana.PublicKey) (solana.PublicKey, uint8, error) {
	return a.derive(seedLiquidityProvider, provider.Bytes())
}

// MintAuthority returns the PDA used as NFT mint authority.
func (a Addresses) MintAuthority() (solana.PublicKey, uint8, error) {
	return a.derive(seedMintAuthority)
}

// u64le is the fixed-width little-endian encoding used for numeric seeds.
func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
