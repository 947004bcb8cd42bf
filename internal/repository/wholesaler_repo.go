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

type WholesalerRepository interface {
	Create(ctx context.Context, profile *model.WholesalerProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WholesalerProfile, error)
	Update(ctx context.Context, profile *model.WholesalerProfile) error
	Search(ctx context.Context, keyword string, limit int) ([]model.WholesalerProfile, error)
	// AddFriends links a and b in both directions.
	AddFriends(ctx context.Context, a, b uuid.UUID) error
	ListFriends(ctx context.Context, id uuid.UUID) ([]model.WholesalerProfile, error)
}

type wholesalerRepository struct {
	db *gorm.DB
}

func NewWholesalerRepository(db *gorm.DB) WholesalerRepository {
	return &wholesalerRepository{db: db}
}

func (r *wholesalerRepository) Create(ctx context.Context, profile *model.WholesalerProfile) error {
	return GetDB(ctx, r.db).Create(profile).Error
}

func (r *wholesalerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WholesalerProfile, error) {
	var profile model.WholesalerProfile
	if err := GetDB(ctx, r.db).Preload("Account").First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *wholesalerRepository) Update(ctx context.Context, profile *model.WholesalerProfile) error {
	return GetDB(ctx, r.db).Model(profile).
		Select("Name", "StreetAddress", "Suburb", "State", "Postcode", "Email", "Phone", "IsActive").
		Updates(profile).Error
}

func (r *wholesalerRepository) Search(ctx context.Context, keyword string, limit int) ([]model.WholesalerProfile, error) {
	var profiles []model.WholesalerProfile
	query := GetDB(ctx, r.db).Where("is_active = ?", true)
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		like := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(suburb) LIKE ?", like, like)
	}
	if err := query.Order("name").Limit(limit).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to search wholesalers: %w", err)
	}
	return profiles, nil
}

func (r *wholesalerRepository) AddFriends(ctx context.Context, a, b uuid.UUID) error {
	rows := []map[string]any{
		{"wholesaler_id": a, "friend_id": b},
		{"wholesaler_id": b, "friend_id": a},
	}
	return GetDB(ctx, r.db).Table("wholesaler_friends").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).Error
}

func (r *wholesalerRepository) ListFriends(ctx context.Context, id uuid.UUID) ([]model.WholesalerProfile, error) {
	var friends []model.WholesalerProfile
	err := GetDB(ctx, r.db).
		Joins("JOIN wholesaler_friends wf ON wf.friend_id = wholesaler_profiles.id").
		Where("wf.wholesaler_id = ?", id).
		Order("wholesaler_profiles.name").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

