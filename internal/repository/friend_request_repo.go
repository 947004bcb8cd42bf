package repository

import (
	"context"
	"fmt"

	"appraisal-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendRequestRepository interface {
	// Create inserts a pending request. A second pending request for the same pair violates
	// a partial unique index and fails with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, request *model.FriendRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error)
	HasPending(ctx context.Context, senderID uuid.UUID, dealershipID, wholesalerID *uuid.UUID) (bool, error)
	Update(ctx context.Context, request *model.FriendRequest) error
	ListSent(ctx context.Context, senderID uuid.UUID) ([]model.FriendRequest, error)
	// ListReceived returns requests addressed to wholesalerID or to any of dealershipIDs.
	ListReceived(ctx context.Context, wholesalerID *uuid.UUID, dealershipIDs []uuid.UUID) ([]model.FriendRequest, error)
}

type friendRequestRepository struct {
	db *gorm.DB
}

func NewFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &friendRequestRepository{db: db}
}

func (r *friendRequestRepository) Create(ctx context.Context, request *model.FriendRequest) error {
	return GetDB(ctx, r.db).Omit("Sender", "RecipientDealership", "RecipientWholesaler").Create(request).Error
}

func (r *friendRequestRepository) withParties(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender").Preload("RecipientDealership").Preload("RecipientWholesaler")
}

func (r *friendRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error) {
	var request model.FriendRequest
	if err := r.withParties(GetDB(ctx, r.db)).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *friendRequestRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error) {
	var request model.FriendRequest
	if err := forUpdate(GetDB(ctx, r.db)).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *friendRequestRepository) HasPending(ctx context.Context, senderID uuid.UUID, dealershipID, wholesalerID *uuid.UUID) (bool, error) {
	query := GetDB(ctx, r.db).Model(&model.FriendRequest{}).
		Where("sender_id = ? AND status = ?", senderID, model.FriendRequestPending)
	switch {
	case dealershipID != nil:
		query = query.Where("recipient_dealership_id = ?", *dealershipID)
	case wholesalerID != nil:
		query = query.Where("recipient_wholesaler_id = ?", *wholesalerID)
	default:
		return false, nil
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check pending requests: %w", err)
	}
	return count > 0, nil
}

func (r *friendRequestRepository) Update(ctx context.Context, request *model.FriendRequest) error {
	return GetDB(ctx, r.db).Model(request).
		Select("Status", "RespondedBy", "RespondedAt").
		Updates(request).Error
}

func (r *friendRequestRepository) ListSent(ctx context.Context, senderID uuid.UUID) ([]model.FriendRequest, error) {
	var requests []model.FriendRequest
	err := r.withParties(GetDB(ctx, r.db)).
		Where("sender_id = ?", senderID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sent requests: %w", err)
	}
	return requests, nil
}

func (r *friendRequestRepository) ListReceived(ctx context.Context, wholesalerID *uuid.UUID, dealershipIDs []uuid.UUID) ([]model.FriendRequest, error) {
	var requests []model.FriendRequest
	query := r.withParties(GetDB(ctx, r.db))
	switch {
	case wholesalerID != nil:
		query = query.Where("recipient_wholesaler_id = ?", *wholesalerID)
	case len(dealershipIDs) > 0:
		query = query.Where("recipient_dealership_id IN ?", dealershipIDs)
	default:
		return requests, nil
	}
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list received requests: %w", err)
	}
	return requests, nil
}
