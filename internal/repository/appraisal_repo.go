package repository

import (
	"context"
	"fmt"
	"strings"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppraisalFilter narrows a listing to what one actor may see.
type AppraisalFilter struct {
	// DealershipIDs restricts results to appraisals owned by these dealerships.
	DealershipIDs []uuid.UUID
	// WholesalerID switches to wholesaler visibility: appraisals it holds an offer on, or owned
	// by one of DealershipIDs.
	WholesalerID *uuid.UUID
	DealershipID *uuid.UUID
	// DealerAccountID matches appraisals the account's dealer profile initiated or last updated.
	DealerAccountID *uuid.UUID
	Keyword         string
	Offset          int
	Limit           int
}

type AppraisalRepository interface {
	Create(ctx context.Context, appraisal *model.Appraisal) error
	// FindByID loads the appraisal with damages, photos, comments and offers.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Appraisal, error)
	// FindForUpdate loads the bare appraisal row locked for the current transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Appraisal, error)
	Update(ctx context.Context, appraisal *model.Appraisal) error
	// SetWinner records offerID as winner unless a winner is already set.
	SetWinner(ctx context.Context, appraisalID, offerID uuid.UUID) (bool, error)
	List(ctx context.Context, filter AppraisalFilter) ([]model.Appraisal, int64, error)
	AddComment(ctx context.Context, comment *model.Comment) error
	AddDamage(ctx context.Context, damage *model.Damage) error
	AddPhoto(ctx context.Context, photo *model.Photo) error
}

type appraisalRepository struct {
	db *gorm.DB
}

func NewAppraisalRepository(db *gorm.DB) AppraisalRepository {
	return &appraisalRepository{db: db}
}

// Create inserts the appraisal together with any damages and photos it carries.
func (r *appraisalRepository) Create(ctx context.Context, appraisal *model.Appraisal) error {
	return GetDB(ctx, r.db).Omit("Dealership", "InitiatingDealer", "LastUpdatingDealer", "Offers", "Comments").
		Create(appraisal).Error
}

func (r *appraisalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Appraisal, error) {
	var appraisal model.Appraisal
	err := GetDB(ctx, r.db).
		Preload("Dealership").
		Preload("InitiatingDealer.Account").
		Preload("LastUpdatingDealer.Account").
		Preload("Damages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Comments.Author").
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Offers.Wholesaler").
		First(&appraisal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &appraisal, nil
}

func (r *appraisalRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Appraisal, error) {
	var appraisal model.Appraisal
	if err := forUpdate(GetDB(ctx, r.db)).First(&appraisal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &appraisal, nil
}

func (r *appraisalRepository) Update(ctx context.Context, appraisal *model.Appraisal) error {
	return GetDB(ctx, r.db).Omit(clause.Associations, "WinnerID", "InitiatingDealerID").Save(appraisal).Error
}

func (r *appraisalRepository) SetWinner(ctx context.Context, appraisalID, offerID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Appraisal{}).
		Where("id = ? AND winner_id IS NULL", appraisalID).
		Update("winner_id", offerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *appraisalRepository) List(ctx context.Context, filter AppraisalFilter) ([]model.Appraisal, int64, error) {
	var appraisals []model.Appraisal
	var total int64

	if filter.WholesalerID == nil && len(filter.DealershipIDs) == 0 {
		return appraisals, 0, nil
	}

	scope := r.visibleTo(ctx, filter)
	if err := GetDB(ctx, r.db).Model(&model.Appraisal{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count appraisals: %w", err)
	}

	err := GetDB(ctx, r.db).Scopes(scope).
		Preload("Dealership").
		Preload("Offers").
		Order("appraisals.updated_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&appraisals).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appraisals: %w", err)
	}
	return appraisals, total, nil
}

func (r *appraisalRepository) visibleTo(ctx context.Context, filter AppraisalFilter) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if filter.WholesalerID != nil {
			offered := GetDB(ctx, r.db).Model(&model.Offer{}).Select("appraisal_id").Where("wholesaler_id = ?", *filter.WholesalerID)
			if len(filter.DealershipIDs) > 0 {
				query = query.Where("appraisals.id IN (?) OR appraisals.dealership_id IN ?", offered, filter.DealershipIDs)
			} else {
				query = query.Where("appraisals.id IN (?)", offered)
			}
		} else {
			query = query.Where("appraisals.dealership_id IN ?", filter.DealershipIDs)
		}

		if filter.DealershipID != nil {
			query = query.Where("appraisals.dealership_id = ?", *filter.DealershipID)
		}
		if filter.DealerAccountID != nil {
			profiles := GetDB(ctx, r.db).Model(&model.DealerProfile{}).Select("id").Where("account_id = ?", *filter.DealerAccountID)
			query = query.Where("appraisals.initiating_dealer_id IN (?) OR appraisals.last_updating_dealer_id IN (?)",
				profiles, profiles)
		}
		if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
			like := "%" + strings.ToLower(keyword) + "%"
			query = query.
				Joins("JOIN dealerships ON dealerships.id = appraisals.dealership_id").
				Where("LOWER(dealerships.name) LIKE ? OR LOWER(appraisals.vehicle_vin) LIKE ? OR LOWER(appraisals.vehicle_registration) LIKE ? OR LOWER(appraisals.vehicle_make) LIKE ? OR LOWER(appraisals.vehicle_model) LIKE ?",
					like, like, like, like, like)
		}
		return query
	}
}

func (r *appraisalRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	return GetDB(ctx, r.db).Omit("Author").Create(comment).Error
}

func (r *appraisalRepository) AddDamage(ctx context.Context, damage *model.Damage) error {
	return GetDB(ctx, r.db).Create(damage).Error
}

func (r *appraisalRepository) AddPhoto(ctx context.Context, photo *model.Photo) error {
	return GetDB(ctx, r.db).Create(photo).Error
}
