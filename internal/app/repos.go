package app

import (
	"gorm.io/gorm"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/repos"
)

type Repos struct {
	Settlement repos.SettlementRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Settlement: repos.NewSettlementRepo(db, log),
	}
}
