package repository

import (
	"context"
	"fmt"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var offerPair = []clause.Column{{Name: "appraisal_id"}, {Name: "wholesaler_id"}}

// OfferRepository writes offers through the (appraisal_id, wholesaler_id) unique index, so
// concurrent invites and responses for one pair always converge on a single row.
type OfferRepository interface {
	// Invite creates an invited row for the pair. It reports false when a row already existed.
	Invite(ctx context.Context, appraisalID, wholesalerID uuid.UUID) (bool, error)
	// Respond creates or overwrites the pair's amount and passed flag.
	Respond(ctx context.Context, appraisalID, wholesalerID uuid.UUID, amount decimal.NullDecimal, passed bool) (*model.Offer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	FindByPair(ctx context.Context, appraisalID, wholesalerID uuid.UUID) (*model.Offer, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	ListByAppraisal(ctx context.Context, appraisalID uuid.UUID) ([]model.Offer, error)
	SetAdjustedAmount(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal) error
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Invite(ctx context.Context, appraisalID, wholesalerID uuid.UUID) (bool, error) {
	offer := &model.Offer{AppraisalID: appraisalID, WholesalerID: wholesalerID}
	res := GetDB(ctx, r.db).
		Omit("Wholesaler").
		Clauses(clause.OnConflict{Columns: offerPair, DoNothing: true}).
		Create(offer)
	if res.Error != nil {
		return false, fmt.Errorf("failed to invite wholesaler: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *offerRepository) Respond(ctx context.Context, appraisalID, wholesalerID uuid.UUID, amount decimal.NullDecimal, passed bool) (*model.Offer, error) {
	offer := &model.Offer{
		AppraisalID:  appraisalID,
		WholesalerID: wholesalerID,
		Amount:       amount,
		Passed:       passed,
	}
	err := GetDB(ctx, r.db).
		Omit("Wholesaler").
		Clauses(clause.OnConflict{
			Columns:   offerPair,
			DoUpdates: clause.AssignmentColumns([]string{"amount", "passed", "updated_at"}),
		}).
		Create(offer).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record offer: %w", err)
	}
	// the conflict path keeps the existing row id, so reload by pair
	return r.FindByPair(ctx, appraisalID, wholesalerID)
}

func (r *offerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	if err := GetDB(ctx, r.db).Preload("Wholesaler").First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) FindByPair(ctx context.Context, appraisalID, wholesalerID uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	err := GetDB(ctx, r.db).
		Where("appraisal_id = ? AND wholesaler_id = ?", appraisalID, wholesalerID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	if err := forUpdate(GetDB(ctx, r.db)).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *offerRepository) ListByAppraisal(ctx context.Context, appraisalID uuid.UUID) ([]model.Offer, error) {
	var offers []model.Offer
	err := GetDB(ctx, r.db).
		Preload("Wholesaler").
		Where("appraisal_id = ?", appraisalID).
		Order("created_at").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (r *offerRepository) SetAdjustedAmount(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal) error {
	return GetDB(ctx, r.db).Model(&model.Offer{}).
		Where("id = ?", id).
		Update("adjusted_amount", amount).Error
}

