package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/alienx5499/zyura-backend/internal/app"
	solanaclient "github.com/alienx5499/zyura-backend/internal/clients/solana"
	"github.com/alienx5499/zyura-backend/internal/ledger"
	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/services"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

// Protocol administration tool. The action and its parameters come from the
// environment so it slots into deploy scripts without a flag parser:
//
//	ACTION=init USDC_MINT=... ORACLE_PROGRAM=... go run ./cmd/admin
//	ACTION=create_product PRODUCT_ID=1 THRESHOLD_MINUTES=60 COVERAGE=100000000 PREMIUM_BPS=500 CLAIM_WINDOW_HOURS=24 go run ./cmd/admin
//	ACTION=set_pause PAUSED=true go run ./cmd/admin
//	ACTION=show_config go run ./cmd/admin
func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	chain, err := solanaclient.NewClient(log)
	if err != nil {
		log.Fatal("Solana client init failed", "error", err)
	}
	protocol, err := services.NewProtocolService(log, chain, cfg.ProgramID, cfg.AdminKey)
	if err != nil {
		log.Fatal("Protocol service init failed", "error", err)
	}

	ctx := context.Background()
	action := strings.ToLower(strings.TrimSpace(os.Getenv("ACTION")))
	switch action {
	case "init":
		if cfg.AdminKey == nil {
			log.Fatal("init requires an admin key")
		}
		usdcMint := mustPubkey(log, "USDC_MINT")
		oracle := mustPubkey(log, "ORACLE_PROGRAM")
		sig, err := protocol.Initialize(ctx, cfg.AdminKey.PublicKey(), usdcMint, oracle)
		report(log, "initialize", sig, err)
	case "create_product":
		sig, err := protocol.CreateProduct(ctx, productParams(log))
		report(log, "create_product", sig, err)
	case "update_product":
		sig, err := protocol.UpdateProduct(ctx, productParams(log))
		report(log, "update_product", sig, err)
	case "set_pause":
		paused := strings.EqualFold(os.Getenv("PAUSED"), "true")
		sig, err := protocol.SetPaused(ctx, paused)
		report(log, "set_pause", sig, err)
	case "deposit":
		vault := mustPubkey(log, "RISK_POOL_VAULT")
		userUsdc := mustPubkey(log, "USER_USDC_ACCOUNT")
		sig, err := protocol.DepositLiquidity(ctx, vault, userUsdc, mustUint(log, "AMOUNT"))
		report(log, "deposit_liquidity", sig, err)
	case "withdraw":
		user := mustPubkey(log, "USER")
		vault := mustPubkey(log, "RISK_POOL_VAULT")
		userUsdc := mustPubkey(log, "USER_USDC_ACCOUNT")
		sig, err := protocol.WithdrawLiquidity(ctx, user, vault, userUsdc, mustUint(log, "AMOUNT"))
		report(log, "withdraw_liquidity", sig, err)
	case "show_config":
		cfgState, err := protocol.Config(ctx)
		dump(log, cfgState, err)
	case "show_product":
		product, err := protocol.Product(ctx, mustUint(log, "PRODUCT_ID"))
		dump(log, product, err)
	case "show_policy":
		policy, err := protocol.Policy(ctx, mustUint(log, "POLICY_ID"))
		dump(log, policy, err)
	case "show_liquidity":
		lp, err := protocol.LiquidityProvider(ctx, mustPubkey(log, "USER"))
		dump(log, lp, err)
	default:
		log.Fatal("Unknown ACTION", "action", action)
	}
}

func productParams(log *logger.Logger) ledger.ProductParams {
	return ledger.ProductParams{
		ID:                    mustUint(log, "PRODUCT_ID"),
		DelayThresholdMinutes: uint32(utils.GetEnvAsInt("THRESHOLD_MINUTES", 60, log)),
		CoverageAmount:        mustUint(log, "COVERAGE"),
		PremiumRateBps:        uint16(utils.GetEnvAsInt("PREMIUM_BPS", 500, log)),
		ClaimWindowHours:      uint32(utils.GetEnvAsInt("CLAIM_WINDOW_HOURS", 24, log)),
	}
}

func mustPubkey(log *logger.Logger, env string) solana.PublicKey {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(os.Getenv(env)))
	if err != nil {
		log.Fatal("Invalid public key", "env", env, "error", err)
	}
	return pk
}

func mustUint(log *logger.Logger, env string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(os.Getenv(env)), 10, 64)
	if err != nil {
		log.Fatal("Invalid integer", "env", env, "error", err)
	}
	return v
}

func report(log *logger.Logger, action string, sig solana.Signature, err error) {
	if err != nil {
		log.Fatal("Action failed", "action", action, "error", err)
	}
	log.Info("Action confirmed", "action", action, "signature", sig.String())
}

func dump(log *logger.Logger, v interface{}, err error) {
	if err != nil {
		log.Fatal("Fetch failed", "error", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal("Marshal failed", "error", err)
	}
	fmt.Println(string(raw))
}
