package repository

import (
	"context"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealerProfileRepository interface {
	Create(ctx context.Context, profile *model.DealerProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DealerProfile, error)
	Update(ctx context.Context, profile *model.DealerProfile) error
	ListByDealership(ctx context.Context, dealershipID uuid.UUID) ([]model.DealerProfile, error)
}

type dealerProfileRepository struct {
	db *gorm.DB
}

func NewDealerProfileRepository(db *gorm.DB) DealerProfileRepository {
	return &dealerProfileRepository{db: db}
}

func (r *dealerProfileRepository) Create(ctx context.Context, profile *model.DealerProfile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

// FindByID loads the profile with its account and every dealership, active or not.
func (r *dealerProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DealerProfile, error) {
	var profile model.DealerProfile
	err := GetDB(ctx, r.db).
		Preload("Account").
		Preload("Dealerships").
		First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *dealerProfileRepository) Update(ctx context.Context, profile *model.DealerProfile) error {
	return GetDB(ctx, r.db).Model(profile).Select("Role", "Phone", "IsActive").Updates(profile).Error
}

func (r *dealerProfileRepository) ListByDealership(ctx context.Context, dealershipID uuid.UUID) ([]model.DealerProfile, error) {
	var profiles []model.DealerProfile
	err := GetDB(ctx, r.db).
		Preload("Account").
		Joins("JOIN dealer_profile_dealerships dpd ON dpd.dealer_profile_id = dealer_profiles.id").
		Where("dpd.dealership_id = ?", dealershipID).
		Order("dealer_profiles.created_at").
		Find(&profiles).Error
	return profiles, err
}
