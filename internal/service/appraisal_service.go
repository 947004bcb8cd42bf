package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/lifecycle"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/internal/websocket"
	"appraisal-backend/pkg/apperror"
	"appraisal-backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type DamagePayload struct {
	Description        string          `json:"description"`
	Location           string          `json:"location"`
	RepairCostEstimate decimal.Decimal `json:"repair_cost_estimate"`
}

type PhotoPayload struct {
	Kind        string `json:"kind"`
	URL         string `json:"url" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type CreateAppraisalRequest struct {
	// DealershipID may be omitted when the dealer works at exactly one dealership.
	DealershipID        string          `json:"dealership_id"`
	CustomerFirstName   string          `json:"customer_first_name"`
	CustomerLastName    string          `json:"customer_last_name"`
	CustomerEmail       string          `json:"customer_email"`
	CustomerPhone       string          `json:"customer_phone"`
	VehicleMake         string          `json:"vehicle_make" binding:"required"`
	VehicleModel        string          `json:"vehicle_model" binding:"required"`
	VehicleYear         int             `json:"vehicle_year"`
	VehicleVIN          string          `json:"vehicle_vin"`
	VehicleRegistration string          `json:"vehicle_registration"`
	Color               string          `json:"color"`
	OdometerReading     int             `json:"odometer_reading"`
	EngineType          string          `json:"engine_type"`
	Transmission        string          `json:"transmission"`
	BodyType            string          `json:"body_type"`
	FuelType            string          `json:"fuel_type"`
	ReservePrice        decimal.Decimal `json:"reserve_price"`
	Damages             []DamagePayload `json:"damages"`
	Photos              []PhotoPayload  `json:"photos"`
}

type UpdateAppraisalRequest struct {
	CustomerFirstName   *string          `json:"customer_first_name"`
	CustomerLastName    *string          `json:"customer_last_name"`
	CustomerEmail       *string          `json:"customer_email"`
	CustomerPhone       *string          `json:"customer_phone"`
	VehicleMake         *string          `json:"vehicle_make"`
	VehicleModel        *string          `json:"vehicle_model"`
	VehicleYear         *int             `json:"vehicle_year"`
	VehicleVIN          *string          `json:"vehicle_vin"`
	VehicleRegistration *string          `json:"vehicle_registration"`
	Color               *string          `json:"color"`
	OdometerReading     *int             `json:"odometer_reading"`
	EngineType          *string          `json:"engine_type"`
	Transmission        *string          `json:"transmission"`
	BodyType            *string          `json:"body_type"`
	FuelType            *string          `json:"fuel_type"`
	ReservePrice        *decimal.Decimal `json:"reserve_price"`
	ReadyForManagement  *bool            `json:"ready_for_management"`
}

type CommentRequest struct {
	Body      string `json:"body" binding:"required"`
	IsPrivate bool   `json:"is_private"`
}

type ListAppraisalsQuery struct {
	Keyword      string
	DealershipID string
	DealerID     string
	Page         int
	Limit        int
}

type DealerRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type DamageResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Description        string          `json:"description"`
	Location           string          `json:"location"`
	RepairCostEstimate decimal.Decimal `json:"repair_cost_estimate"`
}

type PhotoResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

type CommentResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	IsPrivate  bool      `json:"is_private"`
	CreatedAt  time.Time `json:"created_at"`
}

// OwnOfferResponse is the only offer a wholesaler ever sees.
type OwnOfferResponse struct {
	ID     uuid.UUID           `json:"id"`
	State  string              `json:"state"`
	Amount decimal.NullDecimal `json:"amount"`
	Won    bool                `json:"won"`
}

type AppraisalResponse struct {
	ID                  uuid.UUID         `json:"id"`
	Status              lifecycle.Status  `json:"status"`
	DealershipID        uuid.UUID         `json:"dealership_id"`
	DealershipName      string            `json:"dealership_name,omitempty"`
	InitiatingDealer    *DealerRef        `json:"initiating_dealer,omitempty"`
	LastUpdatingDealer  *DealerRef        `json:"last_updating_dealer,omitempty"`
	IsActive            bool              `json:"is_active"`
	ReadyForManagement  bool              `json:"ready_for_management"`
	CustomerFirstName   string            `json:"customer_first_name,omitempty"`
	CustomerLastName    string            `json:"customer_last_name,omitempty"`
	CustomerEmail       string            `json:"customer_email,omitempty"`
	CustomerPhone       string            `json:"customer_phone,omitempty"`
	VehicleMake         string            `json:"vehicle_make"`
	VehicleModel        string            `json:"vehicle_model"`
	VehicleYear         int               `json:"vehicle_year"`
	VehicleVIN          string            `json:"vehicle_vin"`
	VehicleRegistration string            `json:"vehicle_registration"`
	Color               string            `json:"color"`
	OdometerReading     int               `json:"odometer_reading"`
	EngineType          string            `json:"engine_type"`
	Transmission        string            `json:"transmission"`
	BodyType            string            `json:"body_type"`
	FuelType            string            `json:"fuel_type"`
	ReservePrice        *decimal.Decimal  `json:"reserve_price,omitempty"`
	WinnerOfferID       *uuid.UUID        `json:"winner_offer_id,omitempty"`
	OwnOffer            *OwnOfferResponse `json:"own_offer,omitempty"`
	Damages             []DamageResponse  `json:"damages"`
	Photos              []PhotoResponse   `json:"photos"`
	Comments            []CommentResponse `json:"comments"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// --- Interface ---

type AppraisalService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateAppraisalRequest) (*AppraisalResponse, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error)
	List(ctx context.Context, actor authz.Actor, query ListAppraisalsQuery) ([]AppraisalResponse, int64, error)
	Update(ctx context.Context, actor authz.Actor, id string, req UpdateAppraisalRequest) (*AppraisalResponse, error)
	Submit(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error)
	Deactivate(ctx context.Context, actor authz.Actor, id string) error
	Duplicate(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error)
	AddComment(ctx context.Context, actor authz.Actor, id string, req CommentRequest) (*CommentResponse, error)
	AddDamage(ctx context.Context, actor authz.Actor, id string, req DamagePayload) (*DamageResponse, error)
	AddPhoto(ctx context.Context, actor authz.Actor, id string, req PhotoPayload) (*PhotoResponse, error)
}

// --- Implementation ---

type appraisalService struct {
	access         appraisalAccess
	appraisalRepo  repository.AppraisalRepository
	dealershipRepo repository.DealershipRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	events         EventPublisher
}

func NewAppraisalService(
	appraisalRepo repository.AppraisalRepository,
	dealershipRepo repository.DealershipRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) AppraisalService {
	return &appraisalService{
		access:         appraisalAccess{appraisalRepo: appraisalRepo},
		appraisalRepo:  appraisalRepo,
		dealershipRepo: dealershipRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		events:         events,
	}
}

func validateVehicle(vehicleMake, vehicleModel string, year int, vin string) error {
	if strings.TrimSpace(vehicleMake) == "" || strings.TrimSpace(vehicleModel) == "" {
		return apperror.Validation("vehicle_make and vehicle_model are required")
	}
	if year != 0 && (year < 1900 || year > time.Now().Year()+1) {
		return apperror.Validation("vehicle_year is out of range")
	}
	if len(vin) > 17 {
		return apperror.Validation("vehicle_vin must be at most 17 characters")
	}
	return nil
}

func toDamageModels(payloads []DamagePayload) ([]model.Damage, error) {
	damages := make([]model.Damage, 0, len(payloads))
	for i, p := range payloads {
		if p.RepairCostEstimate.IsNegative() {
			return nil, apperror.Validation("damages[%d]: repair_cost_estimate cannot be negative", i)
		}
		damages = append(damages, model.Damage{
			Description:        sanitize(p.Description),
			Location:           sanitize(p.Location),
			RepairCostEstimate: p.RepairCostEstimate,
		})
	}
	return damages, nil
}

func toPhotoModels(payloads []PhotoPayload) ([]model.Photo, error) {
	photos := make([]model.Photo, 0, len(payloads))
	for i, p := range payloads {
		kind := p.Kind
		if kind == "" {
			kind = model.PhotoKindVehicle
		}
		if kind != model.PhotoKindVehicle && kind != model.PhotoKindDamage {
			return nil, apperror.Validation("photos[%d]: kind must be vehicle or damage", i)
		}
		if strings.TrimSpace(p.URL) == "" {
			return nil, apperror.Validation("photos[%d]: url is required", i)
		}
		photos = append(photos, model.Photo{
			Kind:        kind,
			URL:         strings.TrimSpace(p.URL),
			Description: sanitize(p.Description),
			Location:    sanitize(p.Location),
		})
	}
	return photos, nil
}

// resolveDealership picks the dealership an appraisal is created at.
func resolveDealership(actor authz.Actor, raw string) (uuid.UUID, error) {
	if raw == "" {
		if len(actor.DealershipIDs) == 1 {
			return actor.DealershipIDs[0], nil
		}
		if len(actor.DealershipIDs) == 0 {
			return uuid.Nil, apperror.InvalidState("you are not associated with any dealership")
		}
		return uuid.Nil, apperror.Validation("dealership_id is required when working at several dealerships")
	}
	return parseID(raw, "dealership")
}

func (s *appraisalService) Create(ctx context.Context, actor authz.Actor, req CreateAppraisalRequest) (*AppraisalResponse, error) {
	if !authz.IsSalesOrManagementDealer(actor) {
		return nil, apperror.Forbidden()
	}
	dealershipID, err := resolveDealership(actor, req.DealershipID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.CreateAppraisal, authz.Resource{DealershipID: dealershipID}) {
		return nil, apperror.Forbidden()
	}
	if err := validateVehicle(req.VehicleMake, req.VehicleModel, req.VehicleYear, req.VehicleVIN); err != nil {
		return nil, err
	}
	if req.ReservePrice.IsNegative() {
		return nil, apperror.Validation("reserve_price cannot be negative")
	}
	damages, err := toDamageModels(req.Damages)
	if err != nil {
		return nil, err
	}
	photos, err := toPhotoModels(req.Photos)
	if err != nil {
		return nil, err
	}

	dealerID := actor.ProfileID
	appraisal := &model.Appraisal{
		DealershipID:         dealershipID,
		InitiatingDealerID:   dealerID,
		LastUpdatingDealerID: &dealerID,
		IsActive:             true,
		CustomerFirstName:    strings.TrimSpace(req.CustomerFirstName),
		CustomerLastName:     strings.TrimSpace(req.CustomerLastName),
		CustomerEmail:        strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:        strings.TrimSpace(req.CustomerPhone),
		VehicleMake:          strings.TrimSpace(req.VehicleMake),
		VehicleModel:         strings.TrimSpace(req.VehicleModel),
		VehicleYear:          req.VehicleYear,
		VehicleVIN:           strings.ToUpper(strings.TrimSpace(req.VehicleVIN)),
		VehicleRegistration:  strings.ToUpper(strings.TrimSpace(req.VehicleRegistration)),
		Color:                req.Color,
		OdometerReading:      req.OdometerReading,
		EngineType:           req.EngineType,
		Transmission:         req.Transmission,
		BodyType:             req.BodyType,
		FuelType:             req.FuelType,
		ReservePrice:         req.ReservePrice,
		Damages:              damages,
		Photos:               photos,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.appraisalRepo.Create(txCtx, appraisal); err != nil {
			return fmt.Errorf("failed to create appraisal: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, dealershipID, model.ActionCreateAppraisal,
			appraisal.ID.String(), appraisal.VehicleMake+" "+appraisal.VehicleModel, req)
	})
	if err != nil {
		return nil, err
	}

	s.notifyManagement(ctx, EventAppraisalCreated, appraisal)
	return s.Get(ctx, actor, appraisal.ID.String())
}

func (s *appraisalService) Get(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error) {
	appraisal, own, err := s.access.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res := toAppraisalResponse(appraisal, actor, own)
	return &res, nil
}

// List filters rather than fails: an actor without qualifying appraisals gets an empty page.
func (s *appraisalService) List(ctx context.Context, actor authz.Actor, query ListAppraisalsQuery) ([]AppraisalResponse, int64, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, 0, err
	}
	page := pagination.New(query.Page, query.Limit, query.Keyword)

	filter := repository.AppraisalFilter{
		DealershipIDs: actor.DealershipIDs,
		Keyword:       page.Keyword,
		Offset:        page.Offset,
		Limit:         page.Limit,
	}
	if authz.IsWholesaler(actor) {
		profileID := actor.ProfileID
		filter.WholesalerID = &profileID
	}
	if query.DealershipID != "" {
		id, err := uuid.Parse(query.DealershipID)
		if err != nil {
			return []AppraisalResponse{}, 0, nil
		}
		filter.DealershipID = &id
	}
	if query.DealerID != "" {
		id, err := uuid.Parse(query.DealerID)
		if err != nil {
			return []AppraisalResponse{}, 0, nil
		}
		filter.DealerAccountID = &id
	}

	appraisals, total, err := s.appraisalRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AppraisalResponse, 0, len(appraisals))
	for i := range appraisals {
		a := &appraisals[i]
		res = append(res, toAppraisalResponse(a, actor, ownOffer(actor, a.Offers)))
	}
	return res, total, nil
}

func (s *appraisalService) Update(ctx context.Context, actor authz.Actor, id string, req UpdateAppraisalRequest) (*AppraisalResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.UpdateAppraisal)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if err := requireOpen(locked); err != nil {
			return err
		}
		changed, err = applyAppraisalUpdate(locked, req)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		dealerID := actor.ProfileID
		locked.LastUpdatingDealerID = &dealerID
		if err := s.appraisalRepo.Update(txCtx, locked); err != nil {
			return fmt.Errorf("failed to update appraisal: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, locked.DealershipID, model.ActionUpdateAppraisal,
			locked.ID.String(), locked.VehicleMake+" "+locked.VehicleModel, map[string]any{"fields": changed})
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		s.notifyManagement(ctx, EventAppraisalUpdated, appraisal)
	}
	return s.Get(ctx, actor, id)
}

func applyAppraisalUpdate(a *model.Appraisal, req UpdateAppraisalRequest) ([]string, error) {
	var changed []string
	setString := func(field string, dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			changed = append(changed, field)
		}
	}
	setString("customer_first_name", &a.CustomerFirstName, req.CustomerFirstName)
	setString("customer_last_name", &a.CustomerLastName, req.CustomerLastName)
	setString("customer_email", &a.CustomerEmail, req.CustomerEmail)
	setString("customer_phone", &a.CustomerPhone, req.CustomerPhone)
	setString("vehicle_make", &a.VehicleMake, req.VehicleMake)
	setString("vehicle_model", &a.VehicleModel, req.VehicleModel)
	setString("vehicle_vin", &a.VehicleVIN, req.VehicleVIN)
	setString("vehicle_registration", &a.VehicleRegistration, req.VehicleRegistration)
	setString("color", &a.Color, req.Color)
	setString("engine_type", &a.EngineType, req.EngineType)
	setString("transmission", &a.Transmission, req.Transmission)
	setString("body_type", &a.BodyType, req.BodyType)
	setString("fuel_type", &a.FuelType, req.FuelType)
	if req.VehicleYear != nil {
		a.VehicleYear = *req.VehicleYear
		changed = append(changed, "vehicle_year")
	}
	if req.OdometerReading != nil {
		a.OdometerReading = *req.OdometerReading
		changed = append(changed, "odometer_reading")
	}
	if req.ReservePrice != nil {
		if req.ReservePrice.IsNegative() {
			return nil, apperror.Validation("reserve_price cannot be negative")
		}
		a.ReservePrice = *req.ReservePrice
		changed = append(changed, "reserve_price")
	}
	if req.ReadyForManagement != nil {
		a.ReadyForManagement = *req.ReadyForManagement
		changed = append(changed, "ready_for_management")
	}
	a.VehicleVIN = strings.ToUpper(a.VehicleVIN)
	a.VehicleRegistration = strings.ToUpper(a.VehicleRegistration)
	if err := validateVehicle(a.VehicleMake, a.VehicleModel, a.VehicleYear, a.VehicleVIN); err != nil {
		return nil, err
	}
	return changed, nil
}

// Submit hands an appraisal over to management.
func (s *appraisalService) Submit(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.SubmitAppraisal)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if err := requireOpen(locked); err != nil {
			return err
		}
		if locked.ReadyForManagement {
			return nil
		}
		dealerID := actor.ProfileID
		locked.ReadyForManagement = true
		locked.LastUpdatingDealerID = &dealerID
		return s.appraisalRepo.Update(txCtx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.notifyManagement(ctx, EventAppraisalUpdated, appraisal)
	return s.Get(ctx, actor, id)
}

func (s *appraisalService) Deactivate(ctx context.Context, actor authz.Actor, id string) error {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.DeactivateAppraisal)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if !locked.IsActive {
			return apperror.InvalidState("appraisal is already deactivated")
		}
		dealerID := actor.ProfileID
		locked.IsActive = false
		locked.LastUpdatingDealerID = &dealerID
		if err := s.appraisalRepo.Update(txCtx, locked); err != nil {
			return fmt.Errorf("failed to deactivate appraisal: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, locked.DealershipID, model.ActionDeactivateAppraisal,
			locked.ID.String(), locked.VehicleMake+" "+locked.VehicleModel, map[string]any{"is_active": false})
	})
	if err != nil {
		return err
	}

	s.notifyManagement(ctx, EventAppraisalUpdated, appraisal)
	return nil
}

// Duplicate copies the vehicle, customer, damages and photos into a fresh active appraisal.
// Offers, comments and the winner stay with the source.
func (s *appraisalService) Duplicate(ctx context.Context, actor authz.Actor, id string) (*AppraisalResponse, error) {
	source, _, err := s.access.authorize(ctx, actor, id, authz.DuplicateAppraisal)
	if err != nil {
		return nil, err
	}

	dealerID := actor.ProfileID
	copied := &model.Appraisal{
		DealershipID:         source.DealershipID,
		InitiatingDealerID:   dealerID,
		LastUpdatingDealerID: &dealerID,
		IsActive:             true,
		ReadyForManagement:   source.ReadyForManagement,
		CustomerFirstName:    source.CustomerFirstName,
		CustomerLastName:     source.CustomerLastName,
		CustomerEmail:        source.CustomerEmail,
		CustomerPhone:        source.CustomerPhone,
		VehicleMake:          source.VehicleMake,
		VehicleModel:         source.VehicleModel,
		VehicleYear:          source.VehicleYear,
		VehicleVIN:           source.VehicleVIN,
		VehicleRegistration:  source.VehicleRegistration,
		Color:                source.Color,
		OdometerReading:      source.OdometerReading,
		EngineType:           source.EngineType,
		Transmission:         source.Transmission,
		BodyType:             source.BodyType,
		FuelType:             source.FuelType,
		ReservePrice:         source.ReservePrice,
		Damages: lo.Map(source.Damages, func(d model.Damage, _ int) model.Damage {
			return model.Damage{Description: d.Description, Location: d.Location, RepairCostEstimate: d.RepairCostEstimate}
		}),
		Photos: lo.Map(source.Photos, func(p model.Photo, _ int) model.Photo {
			return model.Photo{Kind: p.Kind, URL: p.URL, Description: p.Description, Location: p.Location}
		}),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.appraisalRepo.Create(txCtx, copied); err != nil {
			return fmt.Errorf("failed to duplicate appraisal: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, copied.DealershipID, model.ActionDuplicateAppraisal,
			copied.ID.String(), copied.VehicleMake+" "+copied.VehicleModel, map[string]any{"source_id": source.ID})
	})
	if err != nil {
		return nil, err
	}

	s.notifyManagement(ctx, EventAppraisalCreated, copied)
	return s.Get(ctx, actor, copied.ID.String())
}

func (s *appraisalService) AddComment(ctx context.Context, actor authz.Actor, id string, req CommentRequest) (*CommentResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.CommentAppraisal)
	if err != nil {
		return nil, err
	}
	if !appraisal.IsActive {
		return nil, apperror.InvalidState("appraisal has been deactivated")
	}
	body := sanitize(req.Body)
	if body == "" {
		return nil, apperror.Validation("comment body is required")
	}
	if req.IsPrivate && authz.IsWholesaler(actor) {
		return nil, apperror.Validation("wholesalers cannot post private comments")
	}

	comment := &model.Comment{
		AppraisalID: appraisal.ID,
		AuthorID:    actor.AccountID,
		Body:        body,
		IsPrivate:   req.IsPrivate,
	}
	if err := s.appraisalRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	res := toCommentResponse(*comment)
	return &res, nil
}

func (s *appraisalService) AddDamage(ctx context.Context, actor authz.Actor, id string, req DamagePayload) (*DamageResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.AddDamage)
	if err != nil {
		return nil, err
	}
	if err := requireOpen(appraisal); err != nil {
		return nil, err
	}
	damages, err := toDamageModels([]DamagePayload{req})
	if err != nil {
		return nil, err
	}
	damage := &damages[0]
	damage.AppraisalID = appraisal.ID
	if err := s.appraisalRepo.AddDamage(ctx, damage); err != nil {
		return nil, fmt.Errorf("failed to add damage: %w", err)
	}
	res := toDamageResponse(*damage)
	return &res, nil
}

func (s *appraisalService) AddPhoto(ctx context.Context, actor authz.Actor, id string, req PhotoPayload) (*PhotoResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, id, authz.AddDamage)
	if err != nil {
		return nil, err
	}
	if err := requireOpen(appraisal); err != nil {
		return nil, err
	}
	photos, err := toPhotoModels([]PhotoPayload{req})
	if err != nil {
		return nil, err
	}
	photo := &photos[0]
	photo.AppraisalID = appraisal.ID
	if err := s.appraisalRepo.AddPhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to add photo: %w", err)
	}
	res := toPhotoResponse(*photo)
	return &res, nil
}

// notifyManagement pushes an appraisal event to management at the owning dealership.
func (s *appraisalService) notifyManagement(ctx context.Context, eventType string, a *model.Appraisal) {
	publishToDealership(ctx, s.dealershipRepo, s.events, websocket.Event{Type: eventType, AppraisalID: a.ID}, a.DealershipID)
}

func publishToDealership(ctx context.Context, repo repository.DealershipRepository, events EventPublisher, ev websocket.Event, dealershipID uuid.UUID, extra ...uuid.UUID) {
	audience, err := repo.ManagementAccountIDs(ctx, dealershipID)
	if err != nil {
		slog.Warn("Fail to resolve event audience", slog.String("type", ev.Type), slog.Any("error", err))
	}
	events.Publish(ev, append(audience, extra...)...)
}

// --- Response mappers ---

func dealerRef(p *model.DealerProfile) *DealerRef {
	if p == nil {
		return nil
	}
	ref := &DealerRef{ID: p.ID}
	if p.Account != nil {
		ref.Name = p.Account.FullName()
	}
	return ref
}

// visibleComments: private comments are for management only.
func visibleComments(actor authz.Actor, comments []model.Comment) []CommentResponse {
	res := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		if c.IsPrivate && !authz.IsManagementDealer(actor) {
			continue
		}
		res = append(res, toCommentResponse(c))
	}
	return res
}

func toAppraisalResponse(a *model.Appraisal, actor authz.Actor, own *model.Offer) AppraisalResponse {
	res := AppraisalResponse{
		ID:                  a.ID,
		Status:              lifecycle.Derive(a, actor, own),
		DealershipID:        a.DealershipID,
		InitiatingDealer:    dealerRef(a.InitiatingDealer),
		LastUpdatingDealer:  dealerRef(a.LastUpdatingDealer),
		IsActive:            a.IsActive,
		ReadyForManagement:  a.ReadyForManagement,
		VehicleMake:         a.VehicleMake,
		VehicleModel:        a.VehicleModel,
		VehicleYear:         a.VehicleYear,
		VehicleVIN:          a.VehicleVIN,
		VehicleRegistration: a.VehicleRegistration,
		Color:               a.Color,
		OdometerReading:     a.OdometerReading,
		EngineType:          a.EngineType,
		Transmission:        a.Transmission,
		BodyType:            a.BodyType,
		FuelType:            a.FuelType,
		Damages:             lo.Map(a.Damages, func(d model.Damage, _ int) DamageResponse { return toDamageResponse(d) }),
		Photos:              lo.Map(a.Photos, func(p model.Photo, _ int) PhotoResponse { return toPhotoResponse(p) }),
		Comments:            visibleComments(actor, a.Comments),
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.Dealership != nil {
		res.DealershipName = a.Dealership.Name
	}

	switch actor.Kind {
	case authz.KindManagement, authz.KindSales:
		reserve := a.ReservePrice
		res.ReservePrice = &reserve
		res.CustomerFirstName = a.CustomerFirstName
		res.CustomerLastName = a.CustomerLastName
		res.CustomerEmail = a.CustomerEmail
		res.CustomerPhone = a.CustomerPhone
		if actor.Kind == authz.KindManagement {
			res.WinnerOfferID = a.WinnerID
		}
	case authz.KindWholesaler:
		if own != nil {
			res.OwnOffer = &OwnOfferResponse{
				ID:     own.ID,
				State:  string(own.State()),
				Amount: own.Amount,
				Won:    a.WinnerID != nil && *a.WinnerID == own.ID,
			}
		}
	case authz.KindNone:
	}
	return res
}

func toDamageResponse(d model.Damage) DamageResponse {
	return DamageResponse{
		ID:                 d.ID,
		Description:        d.Description,
		Location:           d.Location,
		RepairCostEstimate: d.RepairCostEstimate,
	}
}

func toPhotoResponse(p model.Photo) PhotoResponse {
	return PhotoResponse{
		ID:          p.ID,
		Kind:        p.Kind,
		URL:         p.URL,
		Description: p.Description,
		Location:    p.Location,
	}
}

func toCommentResponse(c model.Comment) CommentResponse {
	res := CommentResponse{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		IsPrivate: c.IsPrivate,
		CreatedAt: c.CreatedAt,
	}
	if c.Author != nil {
		res.AuthorName = c.Author.FullName()
	}
	return res
}
