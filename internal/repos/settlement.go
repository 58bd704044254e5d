package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/types"
)

type SettlementRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attempts []*types.SettlementAttempt) ([]*types.SettlementAttempt, error)
	LatestByPolicy(ctx context.Context, tx *gorm.DB, policyID uint64) (*types.SettlementAttempt, error)
	LatestPaidByPolicy(ctx context.Context, tx *gorm.DB, policyID uint64) (*types.SettlementAttempt, error)
	ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.SettlementAttempt, error)
	ListByFlight(ctx context.Context, tx *gorm.DB, flightNumber, date string) ([]*types.SettlementAttempt, error)
}

type settlementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettlementRepo(db *gorm.DB, baseLog *logger.Logger) SettlementRepo {
	return &settlementRepo{
		db:  db,
		log: baseLog.With("repo", "SettlementRepo"),
	}
}

func (r *settlementRepo) Create(ctx context.Context, tx *gorm.DB, attempts []*types.SettlementAttempt) ([]*types.SettlementAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(attempts) == 0 {
		return []*types.SettlementAttempt{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *settlementRepo) LatestByPolicy(ctx context.Context, tx *gorm.DB, policyID uint64) (*types.SettlementAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var attempt types.SettlementAttempt
	err := transaction.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("created_at DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// LatestPaidByPolicy returns the most recent attempt that actually paid,
// skipping failed and pending rows.
func (r *settlementRepo) LatestPaidByPolicy(ctx context.Context, tx *gorm.DB, policyID uint64) (*types.SettlementAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var attempt types.SettlementAttempt
	err := transaction.WithContext(ctx).
		Where("policy_id = ? AND outcome = ?", policyID, string(types.OutcomePaid)).
		Order("created_at DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *settlementRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]*types.SettlementAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SettlementAttempt
	if runID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *settlementRepo) ListByFlight(ctx context.Context, tx *gorm.DB, flightNumber, date string) ([]*types.SettlementAttempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SettlementAttempt
	if flightNumber == "" {
		return out, nil
	}
	q := transaction.WithContext(ctx).Where("flight_number = ?", flightNumber)
	if date != "" {
		q = q.Where("flight_date = ?", date)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
