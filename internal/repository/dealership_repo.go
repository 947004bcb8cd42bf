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

type DealershipRepository interface {
	Create(ctx context.Context, dealership *model.Dealership) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Dealership, error)
	Update(ctx context.Context, dealership *model.Dealership) error
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Dealership, error)
	Search(ctx context.Context, keyword string, limit int) ([]model.Dealership, error)
	// AddDealer and AddWholesaler insert join rows and ignore rows that already exist.
	AddDealer(ctx context.Context, dealershipID, profileID uuid.UUID) error
	AddWholesaler(ctx context.Context, dealershipID, wholesalerID uuid.UUID) error
	ListWholesalers(ctx context.Context, dealershipID uuid.UUID) ([]model.WholesalerProfile, error)
	// ManagementAccountIDs returns accounts of active management dealers at the dealership.
	ManagementAccountIDs(ctx context.Context, dealershipID uuid.UUID) ([]uuid.UUID, error)
}

type dealershipRepository struct {
	db *gorm.DB
}

func NewDealershipRepository(db *gorm.DB) DealershipRepository {
	return &dealershipRepository{db: db}
}

func (r *dealershipRepository) Create(ctx context.Context, dealership *model.Dealership) error {
	return GetDB(ctx, r.db).Create(dealership).Error
}

func (r *dealershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Dealership, error) {
	var dealership model.Dealership
	if err := GetDB(ctx, r.db).First(&dealership, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dealership, nil
}

func (r *dealershipRepository) Update(ctx context.Context, dealership *model.Dealership) error {
	return GetDB(ctx, r.db).Omit("DealerProfiles", "Wholesalers").Save(dealership).Error
}

func (r *dealershipRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Dealership, error) {
	var dealerships []model.Dealership
	if len(ids) == 0 {
		return dealerships, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Order("name").Find(&dealerships).Error; err != nil {
		return nil, fmt.Errorf("failed to list dealerships: %w", err)
	}
	return dealerships, nil
}

func (r *dealershipRepository) Search(ctx context.Context, keyword string, limit int) ([]model.Dealership, error) {
	var dealerships []model.Dealership
	query := GetDB(ctx, r.db).Where("is_active = ?", true)
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		like := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(suburb) LIKE ? OR slug LIKE ?", like, like, like)
	}
	if err := query.Order("name").Limit(limit).Find(&dealerships).Error; err != nil {
		return nil, fmt.Errorf("failed to search dealerships: %w", err)
	}
	return dealerships, nil
}

func (r *dealershipRepository) AddDealer(ctx context.Context, dealershipID, profileID uuid.UUID) error {
	return GetDB(ctx, r.db).Table("dealer_profile_dealerships").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]any{"dealer_profile_id": profileID, "dealership_id": dealershipID}).Error
}

func (r *dealershipRepository) AddWholesaler(ctx context.Context, dealershipID, wholesalerID uuid.UUID) error {
	return GetDB(ctx, r.db).Table("dealership_wholesalers").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]any{"dealership_id": dealershipID, "wholesaler_profile_id": wholesalerID}).Error
}

func (r *dealershipRepository) ListWholesalers(ctx context.Context, dealershipID uuid.UUID) ([]model.WholesalerProfile, error) {
	var wholesalers []model.WholesalerProfile
	err := GetDB(ctx, r.db).
		Joins("JOIN dealership_wholesalers dw ON dw.wholesaler_profile_id = wholesaler_profiles.id").
		Where("dw.dealership_id = ?", dealershipID).
		Order("wholesaler_profiles.name").
		Find(&wholesalers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dealership wholesalers: %w", err)
	}
	return wholesalers, nil
}

func (r *dealershipRepository) ManagementAccountIDs(ctx context.Context, dealershipID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.DealerProfile{}).
		Joins("JOIN dealer_profile_dealerships dpd ON dpd.dealer_profile_id = dealer_profiles.id").
		Where("dpd.dealership_id = ? AND dealer_profiles.role = ? AND dealer_profiles.is_active = ?",
			dealershipID, model.DealerRoleManagement, true).
		Pluck("dealer_profiles.account_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load management accounts: %w", err)
	}
	return ids, nil
}
