package repository

import (
	"context"
	"fmt"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	// LoadProfiles returns the account with both profile kinds and their dealerships loaded.
	LoadProfiles(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return GetDB(ctx, r.db).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return count > 0, nil
}

func (r *accountRepository) LoadProfiles(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	err := GetDB(ctx, r.db).
		Preload("DealerProfile.Dealerships", "is_active = ?", true).
		Preload("WholesalerProfile.Dealerships", "is_active = ?", true).
		First(&account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
