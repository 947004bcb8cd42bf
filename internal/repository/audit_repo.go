package repository

import (
	"context"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	// List returns entries for the given dealerships, newest first.
	List(ctx context.Context, dealershipIDs []uuid.UUID, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Omit("Account").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, dealershipIDs []uuid.UUID, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64
	if len(dealershipIDs) == 0 {
		return logs, 0, nil
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Where("dealership_id IN ?", dealershipIDs).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Account").
		Where("dealership_id IN ?", dealershipIDs).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
