package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
)

type CreateDealershipRequest struct {
	Name          string `json:"name" binding:"required"`
	StreetAddress string `json:"street_address"`
	Suburb        string `json:"suburb"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

type CreateStaffRequest struct {
	RegisterAccountRequest
	DealershipID string `json:"dealership_id" binding:"required"`
	Role         string `json:"role" binding:"required"`
}

type AssignDealerRequest struct {
	DealershipID string `json:"dealership_id" binding:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type DealershipResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	StreetAddress string    `json:"street_address"`
	Suburb        string    `json:"suburb"`
	State         string    `json:"state"`
	Postcode      string    `json:"postcode"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type DealerResponse struct {
	ID            uuid.UUID   `json:"id"`
	AccountID     uuid.UUID   `json:"account_id"`
	Username      string      `json:"username"`
	FullName      string      `json:"full_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	Role          string      `json:"role"`
	IsActive      bool        `json:"is_active"`
	DealershipIDs []uuid.UUID `json:"dealership_ids,omitempty"`
}

type DealerService interface {
	CreateDealership(ctx context.Context, actor authz.Actor, req CreateDealershipRequest) (*DealershipResponse, error)
	ListDealerships(ctx context.Context, actor authz.Actor) ([]DealershipResponse, error)
	SearchDealerships(ctx context.Context, actor authz.Actor, keyword string) ([]DealershipResponse, error)
	DeactivateDealership(ctx context.Context, actor authz.Actor, dealershipID string) error
	ListDealershipWholesalers(ctx context.Context, actor authz.Actor, dealershipID string) ([]WholesalerResponse, error)

	ListDealers(ctx context.Context, actor authz.Actor, dealershipID string) ([]DealerResponse, error)
	CreateStaff(ctx context.Context, actor authz.Actor, req CreateStaffRequest) (*DealerResponse, error)
	AssignDealer(ctx context.Context, actor authz.Actor, profileID string, req AssignDealerRequest) (*DealerResponse, error)
	ChangeRole(ctx context.Context, actor authz.Actor, profileID string, req ChangeRoleRequest) (*DealerResponse, error)
	DeactivateDealer(ctx context.Context, actor authz.Actor, profileID string) error
}

type dealerService struct {
	accounts       *accountService
	dealershipRepo repository.DealershipRepository
	dealerRepo     repository.DealerProfileRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewDealerService(
	accountRepo repository.AccountRepository,
	dealershipRepo repository.DealershipRepository,
	dealerRepo repository.DealerProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) DealerService {
	return &dealerService{
		accounts:       &accountService{accountRepo: accountRepo, dealerRepo: dealerRepo, txManager: txManager},
		dealershipRepo: dealershipRepo,
		dealerRepo:     dealerRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

var validDealerRoles = map[string]bool{
	model.DealerRoleManagement: true,
	model.DealerRoleSales:      true,
}

// --- Dealerships ---

func (s *dealerService) CreateDealership(ctx context.Context, actor authz.Actor, req CreateDealershipRequest) (*DealershipResponse, error) {
	if !authz.IsManagementDealer(actor) {
		return nil, apperror.Forbidden()
	}
	name := sanitize(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if err := validateAddressState(req.State); err != nil {
		return nil, err
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, apperror.Validation("invalid email format")
		}
	}

	dealership := &model.Dealership{
		Name:          name,
		Slug:          slug.Make(name + " " + req.Suburb),
		StreetAddress: req.StreetAddress,
		Suburb:        req.Suburb,
		State:         req.State,
		Postcode:      req.Postcode,
		Email:         req.Email,
		Phone:         req.Phone,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealershipRepo.Create(txCtx, dealership); err != nil {
			return fmt.Errorf("failed to create dealership: %w", err)
		}
		if err := s.dealershipRepo.AddDealer(txCtx, dealership.ID, actor.ProfileID); err != nil {
			return fmt.Errorf("failed to join dealership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := toDealershipResponse(*dealership)
	return &res, nil
}

func (s *dealerService) ListDealerships(ctx context.Context, actor authz.Actor) ([]DealershipResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	dealerships, err := s.dealershipRepo.ListByIDs(ctx, actor.DealershipIDs)
	if err != nil {
		return nil, err
	}
	return lo.Map(dealerships, func(d model.Dealership, _ int) DealershipResponse {
		return toDealershipResponse(d)
	}), nil
}

// SearchDealerships lets wholesalers find dealerships to send friend requests to.
func (s *dealerService) SearchDealerships(ctx context.Context, actor authz.Actor, keyword string) ([]DealershipResponse, error) {
	if !authz.IsWholesaler(actor) {
		return nil, apperror.Forbidden()
	}
	dealerships, err := s.dealershipRepo.Search(ctx, keyword, 50)
	if err != nil {
		return nil, err
	}
	return lo.Map(dealerships, func(d model.Dealership, _ int) DealershipResponse {
		return toDealershipResponse(d)
	}), nil
}

func (s *dealerService) DeactivateDealership(ctx context.Context, actor authz.Actor, dealershipID string) error {
	id, err := parseID(dealershipID, "dealership")
	if err != nil {
		return err
	}
	if !authz.Can(actor, authz.ManageDealership, authz.Resource{DealershipID: id}) {
		return apperror.NotFound("dealership")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		dealership, err := s.dealershipRepo.FindByID(txCtx, id)
		if err != nil {
			return notFoundOr(err, "dealership")
		}
		if !dealership.IsActive {
			return apperror.InvalidState("dealership is already inactive")
		}
		dealership.IsActive = false
		if err := s.dealershipRepo.Update(txCtx, dealership); err != nil {
			return fmt.Errorf("failed to deactivate dealership: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, dealership.ID, model.ActionDeactivateDealership,
			dealership.ID.String(), dealership.Name, map[string]any{"is_active": false})
	})
}

func (s *dealerService) ListDealershipWholesalers(ctx context.Context, actor authz.Actor, dealershipID string) ([]WholesalerResponse, error) {
	id, err := parseID(dealershipID, "dealership")
	if err != nil {
		return nil, err
	}
	if !authz.BelongsToSameDealership(actor, id) {
		return nil, apperror.NotFound("dealership")
	}
	wholesalers, err := s.dealershipRepo.ListWholesalers(ctx, id)
	if err != nil {
		return nil, err
	}
	return lo.Map(wholesalers, func(w model.WholesalerProfile, _ int) WholesalerResponse {
		return toWholesalerResponse(w)
	}), nil
}

// --- Dealers ---

func (s *dealerService) ListDealers(ctx context.Context, actor authz.Actor, dealershipID string) ([]DealerResponse, error) {
	id, err := parseID(dealershipID, "dealership")
	if err != nil {
		return nil, err
	}
	if !authz.BelongsToSameDealership(actor, id) {
		return nil, apperror.NotFound("dealership")
	}
	profiles, err := s.dealerRepo.ListByDealership(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealers: %w", err)
	}
	return lo.Map(profiles, func(p model.DealerProfile, _ int) DealerResponse {
		return toDealerResponse(p)
	}), nil
}

func (s *dealerService) CreateStaff(ctx context.Context, actor authz.Actor, req CreateStaffRequest) (*DealerResponse, error) {
	dealershipID, err := parseID(req.DealershipID, "dealership")
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ManageDealership, authz.Resource{DealershipID: dealershipID}) {
		return nil, apperror.Forbidden()
	}
	if !validDealerRoles[req.Role] {
		return nil, apperror.Validation("role must be one of: management, sales")
	}
	account, err := s.accounts.newAccount(ctx, req.RegisterAccountRequest)
	if err != nil {
		return nil, err
	}

	profile := &model.DealerProfile{
		Role:     req.Role,
		Phone:    req.Phone,
		IsActive: true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accounts.accountRepo.Create(txCtx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		profile.AccountID = account.ID
		if err := s.dealerRepo.Create(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create dealer profile: %w", err)
		}
		return s.dealershipRepo.AddDealer(txCtx, dealershipID, profile.ID)
	})
	if err != nil {
		return nil, err
	}

	profile.Account = account
	profile.Dealerships = []model.Dealership{{Base: model.Base{ID: dealershipID}}}
	res := toDealerResponse(*profile)
	return &res, nil
}

// loadManagedDealer returns the target profile if the actor manages it. Profiles outside the
// actor's dealerships are reported as missing.
func (s *dealerService) loadManagedDealer(ctx context.Context, actor authz.Actor, profileID string) (*model.DealerProfile, error) {
	id, err := parseID(profileID, "dealer")
	if err != nil {
		return nil, err
	}
	profile, err := s.dealerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dealer")
	}
	target := authz.Resource{TargetDealershipIDs: profile.DealershipIDs()}
	if !authz.SharesDealership(actor, target.TargetDealershipIDs) {
		return nil, apperror.NotFound("dealer")
	}
	if !authz.Can(actor, authz.ManageDealer, target) {
		return nil, apperror.Forbidden()
	}
	return profile, nil
}

func (s *dealerService) AssignDealer(ctx context.Context, actor authz.Actor, profileID string, req AssignDealerRequest) (*DealerResponse, error) {
	dealershipID, err := parseID(req.DealershipID, "dealership")
	if err != nil {
		return nil, err
	}
	profile, err := s.loadManagedDealer(ctx, actor, profileID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ManageDealership, authz.Resource{DealershipID: dealershipID}) {
		return nil, apperror.Forbidden()
	}
	if lo.Contains(profile.DealershipIDs(), dealershipID) {
		return nil, apperror.InvalidState("dealer already works at this dealership")
	}

	if err := s.dealershipRepo.AddDealer(ctx, dealershipID, profile.ID); err != nil {
		return nil, fmt.Errorf("failed to assign dealer: %w", err)
	}
	profile.Dealerships = append(profile.Dealerships, model.Dealership{Base: model.Base{ID: dealershipID}})
	res := toDealerResponse(*profile)
	return &res, nil
}

func (s *dealerService) ChangeRole(ctx context.Context, actor authz.Actor, profileID string, req ChangeRoleRequest) (*DealerResponse, error) {
	if !validDealerRoles[req.Role] {
		return nil, apperror.Validation("role must be one of: management, sales")
	}
	profile, err := s.loadManagedDealer(ctx, actor, profileID)
	if err != nil {
		return nil, err
	}
	if profile.Role == req.Role {
		res := toDealerResponse(*profile)
		return &res, nil
	}

	from := profile.Role
	profile.Role = req.Role
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealerRepo.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to change role: %w", err)
		}
		return s.auditDealer(txCtx, actor, profile, model.ActionChangeDealerRole, map[string]any{"from": from, "to": req.Role})
	})
	if err != nil {
		return nil, err
	}
	res := toDealerResponse(*profile)
	return &res, nil
}

func (s *dealerService) DeactivateDealer(ctx context.Context, actor authz.Actor, profileID string) error {
	profile, err := s.loadManagedDealer(ctx, actor, profileID)
	if err != nil {
		return err
	}
	if !profile.IsActive {
		return apperror.InvalidState("dealer is already inactive")
	}
	profile.IsActive = false
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.dealerRepo.Update(txCtx, profile); err != nil {
			return fmt.Errorf("failed to deactivate dealer: %w", err)
		}
		return s.auditDealer(txCtx, actor, profile, model.ActionDeactivateDealer, map[string]any{"is_active": false})
	})
}

// auditDealer logs against every dealership the actor shares with the profile.
func (s *dealerService) auditDealer(ctx context.Context, actor authz.Actor, profile *model.DealerProfile, action string, details map[string]any) error {
	name := ""
	if profile.Account != nil {
		name = profile.Account.FullName()
	}
	for _, dealershipID := range lo.Intersect(actor.DealershipIDs, profile.DealershipIDs()) {
		if err := recordAudit(ctx, s.auditRepo, actor, dealershipID, action, profile.ID.String(), name, details); err != nil {
			return err
		}
	}
	return nil
}

// --- Response mappers ---

func toDealershipResponse(d model.Dealership) DealershipResponse {
	return DealershipResponse{
		ID:            d.ID,
		Name:          d.Name,
		Slug:          d.Slug,
		StreetAddress: d.StreetAddress,
		Suburb:        d.Suburb,
		State:         d.State,
		Postcode:      d.Postcode,
		Email:         d.Email,
		Phone:         d.Phone,
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt,
	}
}

func toDealerResponse(p model.DealerProfile) DealerResponse {
	res := DealerResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Phone:         p.Phone,
		Role:          p.Role,
		IsActive:      p.IsActive,
		DealershipIDs: p.DealershipIDs(),
	}
	if p.Account != nil {
		res.Username = p.Account.Username
		res.FullName = strings.TrimSpace(p.Account.FullName())
		res.Email = p.Account.Email
	}
	return res
}
