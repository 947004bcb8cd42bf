package repository

import (
	"context"
	"fmt"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository reads settled facts only. It never writes.
type ReportRepository interface {
	CountByState(ctx context.Context, dealershipIDs []uuid.UUID) (total, active, complete, trashed int64, err error)
	TopVehicleMakes(ctx context.Context, dealershipIDs []uuid.UUID, limit int) ([]model.VehicleMakeCount, error)
	WholesalerWins(ctx context.Context, dealershipIDs []uuid.UUID) ([]model.WholesalerWins, error)
	Settled(ctx context.Context, dealershipIDs []uuid.UUID) ([]model.SettledAppraisal, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) CountByState(ctx context.Context, dealershipIDs []uuid.UUID) (int64, int64, int64, int64, error) {
	var result struct {
		Total    int64
		Active   int64
		Complete int64
		Trashed  int64
	}
	err := GetDB(ctx, r.db).Model(&model.Appraisal{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_active AND winner_id IS NULL THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN is_active AND winner_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS complete,
			COALESCE(SUM(CASE WHEN NOT is_active THEN 1 ELSE 0 END), 0) AS trashed`).
		Where("dealership_id IN ?", dealershipIDs).
		Scan(&result).Error
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to count appraisals: %w", err)
	}
	return result.Total, result.Active, result.Complete, result.Trashed, nil
}

func (r *reportRepository) TopVehicleMakes(ctx context.Context, dealershipIDs []uuid.UUID, limit int) ([]model.VehicleMakeCount, error) {
	var rows []model.VehicleMakeCount
	err := GetDB(ctx, r.db).Model(&model.Appraisal{}).
		Select("vehicle_make, COUNT(*) AS total").
		Where("dealership_id IN ? AND vehicle_make <> ''", dealershipIDs).
		Group("vehicle_make").
		Order("total DESC, vehicle_make").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle makes: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) WholesalerWins(ctx context.Context, dealershipIDs []uuid.UUID) ([]model.WholesalerWins, error) {
	var rows []model.WholesalerWins
	err := GetDB(ctx, r.db).Table("appraisals").
		Select("wholesaler_profiles.id AS wholesaler_id, wholesaler_profiles.name AS wholesaler_name, COUNT(*) AS wins").
		Joins("JOIN offers ON offers.id = appraisals.winner_id").
		Joins("JOIN wholesaler_profiles ON wholesaler_profiles.id = offers.wholesaler_id").
		Where("appraisals.dealership_id IN ? AND appraisals.is_active = ?", dealershipIDs, true).
		Group("wholesaler_profiles.id, wholesaler_profiles.name").
		Order("wins DESC, wholesaler_profiles.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query wholesaler wins: %w", err)
	}
	return rows, nil
}

func (r *reportRepository) Settled(ctx context.Context, dealershipIDs []uuid.UUID) ([]model.SettledAppraisal, error) {
	var rows []model.SettledAppraisal
	err := GetDB(ctx, r.db).Table("appraisals").
		Select("appraisals.id AS appraisal_id, appraisals.reserve_price, offers.amount, offers.adjusted_amount").
		Joins("JOIN offers ON offers.id = appraisals.winner_id").
		Where("appraisals.dealership_id IN ? AND appraisals.is_active = ?", dealershipIDs, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query settled appraisals: %w", err)
	}
	return rows, nil
}
