package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type UpdateWholesalerRequest struct {
	WholesalerName *string `json:"wholesaler_name"`
	StreetAddress  *string `json:"street_address"`
	Suburb         *string `json:"suburb"`
	State          *string `json:"state"`
	Postcode       *string `json:"postcode"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
}

type WholesalerResponse struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	Name          string    `json:"wholesaler_name"`
	StreetAddress string    `json:"street_address"`
	Suburb        string    `json:"suburb"`
	State         string    `json:"state"`
	Postcode      string    `json:"postcode"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	IsActive      bool      `json:"is_active"`
}

type WholesalerService interface {
	GetProfile(ctx context.Context, actor authz.Actor, profileID string) (*WholesalerResponse, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, profileID string, req UpdateWholesalerRequest) (*WholesalerResponse, error)
	DeactivateProfile(ctx context.Context, actor authz.Actor, profileID string) error
	Search(ctx context.Context, actor authz.Actor, keyword string) ([]WholesalerResponse, error)
}

type wholesalerService struct {
	wholesalerRepo repository.WholesalerRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewWholesalerService(
	wholesalerRepo repository.WholesalerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) WholesalerService {
	return &wholesalerService{wholesalerRepo: wholesalerRepo, auditRepo: auditRepo, txManager: txManager}
}

// GetProfile is open to any authenticated actor; wholesaler profiles are public directory
// entries.
func (s *wholesalerService) GetProfile(ctx context.Context, actor authz.Actor, profileID string) (*WholesalerResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	id, err := parseID(profileID, "wholesaler")
	if err != nil {
		return nil, err
	}
	profile, err := s.wholesalerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "wholesaler")
	}
	res := toWholesalerResponse(*profile)
	return &res, nil
}

// loadOwned returns the profile if it belongs to the actor. Edits are never delegated.
func (s *wholesalerService) loadOwned(ctx context.Context, actor authz.Actor, profileID string) (*model.WholesalerProfile, error) {
	id, err := parseID(profileID, "wholesaler")
	if err != nil {
		return nil, err
	}
	profile, err := s.wholesalerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "wholesaler")
	}
	if !authz.Can(actor, authz.EditWholesalerProfile, authz.Resource{OwnerAccountID: profile.AccountID}) {
		return nil, apperror.Forbidden()
	}
	return profile, nil
}

func (s *wholesalerService) UpdateProfile(ctx context.Context, actor authz.Actor, profileID string, req UpdateWholesalerRequest) (*WholesalerResponse, error) {
	profile, err := s.loadOwned(ctx, actor, profileID)
	if err != nil {
		return nil, err
	}

	if req.WholesalerName != nil {
		name := sanitize(*req.WholesalerName)
		if name == "" {
			return nil, apperror.Validation("wholesaler_name cannot be empty")
		}
		profile.Name = name
	}
	if req.State != nil {
		if err := validateAddressState(*req.State); err != nil {
			return nil, err
		}
		profile.State = *req.State
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return nil, apperror.Validation("invalid email format")
			}
		}
		profile.Email = *req.Email
	}
	if req.StreetAddress != nil {
		profile.StreetAddress = strings.TrimSpace(*req.StreetAddress)
	}
	if req.Suburb != nil {
		profile.Suburb = strings.TrimSpace(*req.Suburb)
	}
	if req.Postcode != nil {
		profile.Postcode = strings.TrimSpace(*req.Postcode)
	}
	if req.Phone != nil {
		profile.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.wholesalerRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update wholesaler: %w", err)
	}
	res := toWholesalerResponse(*profile)
	return &res, nil
}

func (s *wholesalerService) DeactivateProfile(ctx context.Context, actor authz.Actor, profileID string) error {
	profile, err := s.loadOwned(ctx, actor, profileID)
	if err != nil {
		return err
	}
	profile.IsActive = false
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.wholesalerRepo.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to deactivate wholesaler: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, uuid.Nil, model.ActionDeactivateWholesaler,
			profile.ID.String(), profile.Name, map[string]any{"is_active": false})
	})
}

func (s *wholesalerService) Search(ctx context.Context, actor authz.Actor, keyword string) ([]WholesalerResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	profiles, err := s.wholesalerRepo.Search(ctx, keyword, 50)
	if err != nil {
		return nil, err
	}
	return lo.Map(profiles, func(p model.WholesalerProfile, _ int) WholesalerResponse {
		return toWholesalerResponse(p)
	}), nil
}

func toWholesalerResponse(p model.WholesalerProfile) WholesalerResponse {
	return WholesalerResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Name:          p.Name,
		StreetAddress: p.StreetAddress,
		Suburb:        p.Suburb,
		State:         p.State,
		Postcode:      p.Postcode,
		Email:         p.Email,
		Phone:         p.Phone,
		IsActive:      p.IsActive,
	}
}
