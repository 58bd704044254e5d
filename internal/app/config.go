package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

const defaultProgramID = "H8713ke9JBR9uHkahFMP15482LH2XkMdjNvmyEwRzeaX"

type Config struct {
	ProgramID    solana.PublicKey
	AdminKey     solana.PrivateKey
	AllowOrigins []string
	Port         string
}

func LoadConfig(log *logger.Logger) (Config, error) {
	programID, err := solana.PublicKeyFromBase58(utils.GetEnv("PROGRAM_ID", defaultProgramID, log))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROGRAM_ID: %w", err)
	}

	adminKey, err := loadAdminKey(log)
	if err != nil {
		return Config{}, err
	}

	var origins []string
	for _, o := range strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		ProgramID:    programID,
		AdminKey:     adminKey,
		AllowOrigins: origins,
		Port:         utils.GetEnv("PORT", "8080", log),
	}, nil
}

// loadAdminKey reads the settlement authority keypair, from a solana-keygen
// file if ADMIN_KEYPAIR_PATH is set, otherwise from ADMIN_PRIVATE_KEY. A
// missing key leaves mutating operations unavailable but read paths working.
func loadAdminKey(log *logger.Logger) (solana.PrivateKey, error) {
	if path := strings.TrimSpace(os.Getenv("ADMIN_KEYPAIR_PATH")); path != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("read ADMIN_KEYPAIR_PATH: %w", err)
		}
		return key, nil
	}
	if raw := strings.TrimSpace(os.Getenv("ADMIN_PRIVATE_KEY")); raw != "" {
		key, err := solana.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ADMIN_PRIVATE_KEY: %w", err)
		}
		return key, nil
	}
	log.Warn("No admin key configured; settlement and admin operations are disabled")
	return nil, nil
}
