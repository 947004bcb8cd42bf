package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/internal/websocket"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type InviteRequest struct {
	WholesalerIDs []string `json:"wholesaler_ids" binding:"required,min=1"`
}

type RejectedInvite struct {
	WholesalerID string `json:"wholesaler_id"`
	Reason       string `json:"reason"`
}

// InviteResult reports every requested id in exactly one bucket.
type InviteResult struct {
	Invited        []uuid.UUID      `json:"invited"`
	AlreadyInvited []uuid.UUID      `json:"already_invited"`
	Rejected       []RejectedInvite `json:"rejected"`
}

type MakeOfferRequest struct {
	// WholesalerID may be omitted; when present it must be the caller's own profile.
	WholesalerID string          `json:"wholesaler_id"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

type PassOfferRequest struct {
	WholesalerID string `json:"wholesaler_id"`
}

type AdjustOfferRequest struct {
	// AdjustedAmount null clears the adjustment.
	AdjustedAmount decimal.NullDecimal `json:"adjusted_amount"`
}

type SelectWinnerRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

// OfferResponse is the management view of an offer.
type OfferResponse struct {
	ID              uuid.UUID           `json:"id"`
	AppraisalID     uuid.UUID           `json:"appraisal_id"`
	WholesalerID    uuid.UUID           `json:"wholesaler_id"`
	WholesalerName  string              `json:"wholesaler_name"`
	State           model.OfferState    `json:"state"`
	Amount          decimal.NullDecimal `json:"amount"`
	AdjustedAmount  decimal.NullDecimal `json:"adjusted_amount"`
	EffectiveAmount decimal.NullDecimal `json:"effective_amount"`
	IsWinner        bool                `json:"is_winner"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OfferListResponse splits responded offers from silent invitations.
type OfferListResponse struct {
	Offers  []OfferResponse `json:"offers"`
	Invites []OfferResponse `json:"invites"`
}

// --- Interface ---

type OfferService interface {
	Invite(ctx context.Context, actor authz.Actor, appraisalID string, req InviteRequest) (*InviteResult, error)
	MakeOffer(ctx context.Context, actor authz.Actor, appraisalID string, req MakeOfferRequest) (*OwnOfferResponse, error)
	PassOffer(ctx context.Context, actor authz.Actor, appraisalID string, req PassOfferRequest) (*OwnOfferResponse, error)
	AdjustAmount(ctx context.Context, actor authz.Actor, offerID string, req AdjustOfferRequest) (*OfferResponse, error)
	SelectWinner(ctx context.Context, actor authz.Actor, appraisalID string, req SelectWinnerRequest) (*OfferResponse, error)
	ListOffers(ctx context.Context, actor authz.Actor, appraisalID string) (*OfferListResponse, error)
}

// --- Implementation ---

type offerService struct {
	access         appraisalAccess
	appraisalRepo  repository.AppraisalRepository
	offerRepo      repository.OfferRepository
	dealershipRepo repository.DealershipRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	events         EventPublisher
}

func NewOfferService(
	appraisalRepo repository.AppraisalRepository,
	offerRepo repository.OfferRepository,
	dealershipRepo repository.DealershipRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) OfferService {
	return &offerService{
		access:         appraisalAccess{appraisalRepo: appraisalRepo},
		appraisalRepo:  appraisalRepo,
		offerRepo:      offerRepo,
		dealershipRepo: dealershipRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		events:         events,
	}
}

// Invite creates silent offers for wholesalers the dealership has granted access to.
// Ids are processed independently: one bad id never blocks the others.
func (s *offerService) Invite(ctx context.Context, actor authz.Actor, appraisalID string, req InviteRequest) (*InviteResult, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, appraisalID, authz.InviteWholesalers)
	if err != nil {
		return nil, err
	}
	if len(req.WholesalerIDs) == 0 {
		return nil, apperror.Validation("wholesaler_ids must not be empty")
	}

	granted, err := s.dealershipRepo.ListWholesalers(ctx, appraisal.DealershipID)
	if err != nil {
		return nil, err
	}
	accounts := make(map[uuid.UUID]uuid.UUID, len(granted))
	for _, w := range granted {
		if w.IsActive {
			accounts[w.ID] = w.AccountID
		}
	}

	result := &InviteResult{
		Invited:        []uuid.UUID{},
		AlreadyInvited: []uuid.UUID{},
		Rejected:       []RejectedInvite{},
	}
	candidates := make([]uuid.UUID, 0, len(req.WholesalerIDs))
	for _, raw := range lo.Uniq(req.WholesalerIDs) {
		id, err := uuid.Parse(raw)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedInvite{WholesalerID: raw, Reason: "invalid wholesaler id"})
			continue
		}
		if _, ok := accounts[id]; !ok {
			result.Rejected = append(result.Rejected, RejectedInvite{
				WholesalerID: raw,
				Reason:       "wholesaler has not been granted access to this dealership",
			})
			continue
		}
		candidates = append(candidates, id)
	}
	candidates = lo.Uniq(candidates)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if err := requireOpen(locked); err != nil {
			return err
		}
		for _, id := range candidates {
			created, err := s.offerRepo.Invite(txCtx, locked.ID, id)
			if err != nil {
				return err
			}
			if created {
				result.Invited = append(result.Invited, id)
			} else {
				result.AlreadyInvited = append(result.AlreadyInvited, id)
			}
		}
		if len(result.Invited) == 0 {
			return nil
		}
		return recordAudit(txCtx, s.auditRepo, actor, locked.DealershipID, model.ActionInviteWholesalers,
			locked.ID.String(), locked.VehicleMake+" "+locked.VehicleModel, map[string]any{"invited": result.Invited})
	})
	if err != nil {
		return nil, err
	}

	for _, r := range result.Rejected {
		slog.Warn("Invite rejected",
			slog.String("appraisal_id", appraisal.ID.String()),
			slog.String("wholesaler_id", r.WholesalerID),
			slog.String("reason", r.Reason))
	}
	for _, id := range result.Invited {
		publishToDealership(ctx, s.dealershipRepo, s.events,
			websocket.Event{Type: EventOfferInvited, AppraisalID: appraisal.ID, Data: map[string]any{"wholesaler_id": id}},
			appraisal.DealershipID, accounts[id])
	}
	return result, nil
}

// respond loads the appraisal for a wholesaler acting on its own behalf.
func (s *offerService) respond(ctx context.Context, actor authz.Actor, appraisalID, wholesalerID string, amount decimal.NullDecimal, passed bool) (*OwnOfferResponse, error) {
	appraisal, own, err := s.access.load(ctx, actor, appraisalID)
	if err != nil {
		return nil, err
	}
	if wholesalerID != "" && wholesalerID != actor.ProfileID.String() {
		return nil, apperror.Forbidden()
	}
	resource := resourceOf(appraisal, own)
	resource.OwnerAccountID = actor.AccountID
	if !authz.Can(actor, authz.RespondToAppraisal, resource) {
		return nil, apperror.Forbidden()
	}

	var offer *model.Offer
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if err := requireOpen(locked); err != nil {
			return err
		}
		offer, err = s.offerRepo.Respond(txCtx, locked.ID, actor.ProfileID, amount, passed)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishToDealership(ctx, s.dealershipRepo, s.events,
		websocket.Event{Type: EventOfferUpdated, AppraisalID: appraisal.ID, Data: map[string]any{"offer_id": offer.ID, "state": offer.State()}},
		appraisal.DealershipID, actor.AccountID)

	return &OwnOfferResponse{ID: offer.ID, State: string(offer.State()), Amount: offer.Amount}, nil
}

// MakeOffer records or overwrites the caller's bid. No history of earlier amounts is kept.
func (s *offerService) MakeOffer(ctx context.Context, actor authz.Actor, appraisalID string, req MakeOfferRequest) (*OwnOfferResponse, error) {
	if err := positive(req.Amount, "amount"); err != nil {
		return nil, err
	}
	return s.respond(ctx, actor, appraisalID, req.WholesalerID, decimal.NewNullDecimal(req.Amount), false)
}

// PassOffer declines and clears any amount previously offered.
func (s *offerService) PassOffer(ctx context.Context, actor authz.Actor, appraisalID string, req PassOfferRequest) (*OwnOfferResponse, error) {
	return s.respond(ctx, actor, appraisalID, req.WholesalerID, decimal.NullDecimal{}, true)
}

func (s *offerService) AdjustAmount(ctx context.Context, actor authz.Actor, offerID string, req AdjustOfferRequest) (*OfferResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	id, err := parseID(offerID, "offer")
	if err != nil {
		return nil, err
	}
	offer, err := s.offerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "offer")
	}
	appraisal, own, err := s.access.loadByID(ctx, actor, offer.AppraisalID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.AdjustOffer, resourceOf(appraisal, own)) {
		return nil, apperror.Forbidden()
	}
	if req.AdjustedAmount.Valid {
		if err := positive(req.AdjustedAmount.Decimal, "adjusted_amount"); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lockedAppraisal, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		// completed appraisals still take adjustments
		if !lockedAppraisal.IsActive {
			return apperror.InvalidState("appraisal has been deactivated")
		}
		locked, err := s.offerRepo.FindForUpdate(txCtx, offer.ID)
		if err != nil {
			return notFoundOr(err, "offer")
		}
		if err := s.offerRepo.SetAdjustedAmount(txCtx, locked.ID, req.AdjustedAmount); err != nil {
			return fmt.Errorf("failed to adjust offer: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, appraisal.DealershipID, model.ActionAdjustOffer,
			locked.ID.String(), wholesalerName(offer), map[string]any{
				"appraisal_id": appraisal.ID,
				"from":         locked.AdjustedAmount,
				"to":           req.AdjustedAmount,
			})
	})
	if err != nil {
		return nil, err
	}

	offer.AdjustedAmount = req.AdjustedAmount
	publishToDealership(ctx, s.dealershipRepo, s.events,
		websocket.Event{Type: EventOfferUpdated, AppraisalID: appraisal.ID, Data: map[string]any{"offer_id": offer.ID}},
		appraisal.DealershipID)

	res := toOfferResponse(*offer, appraisal.WinnerID)
	return &res, nil
}

// SelectWinner is terminal: there is no way to clear or replace a winner.
func (s *offerService) SelectWinner(ctx context.Context, actor authz.Actor, appraisalID string, req SelectWinnerRequest) (*OfferResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, appraisalID, authz.SelectWinner)
	if err != nil {
		return nil, err
	}
	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		return nil, apperror.Validation("offer_id is not a valid id")
	}

	var winner *model.Offer
	var others []model.Offer
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.appraisalRepo.FindForUpdate(txCtx, appraisal.ID)
		if err != nil {
			return notFoundOr(err, "appraisal")
		}
		if err := requireOpen(locked); err != nil {
			return err
		}

		offers, err := s.offerRepo.ListByAppraisal(txCtx, locked.ID)
		if err != nil {
			return err
		}
		for i := range offers {
			if offers[i].ID == offerID {
				winner = &offers[i]
			} else {
				others = append(others, offers[i])
			}
		}
		if winner == nil {
			return apperror.InvalidState("offer does not belong to this appraisal")
		}
		if winner.State() != model.OfferBid {
			return apperror.InvalidState("only an offer with an amount can win")
		}

		ok, err := s.appraisalRepo.SetWinner(txCtx, locked.ID, winner.ID)
		if err != nil {
			return fmt.Errorf("failed to select winner: %w", err)
		}
		if !ok {
			return apperror.InvalidState("a winner has already been selected")
		}
		return recordAudit(txCtx, s.auditRepo, actor, locked.DealershipID, model.ActionSelectWinner,
			locked.ID.String(), locked.VehicleMake+" "+locked.VehicleModel, map[string]any{
				"offer_id":      winner.ID,
				"wholesaler_id": winner.WholesalerID,
				"amount":        winner.EffectiveAmount(),
			})
	})
	if err != nil {
		return nil, err
	}

	var winnerAccount []uuid.UUID
	if winner.Wholesaler != nil {
		winnerAccount = append(winnerAccount, winner.Wholesaler.AccountID)
	}
	publishToDealership(ctx, s.dealershipRepo, s.events,
		websocket.Event{Type: EventWinnerSelected, AppraisalID: appraisal.ID, Data: map[string]any{"offer_id": winner.ID}},
		appraisal.DealershipID, winnerAccount...)
	// the rest only learn the appraisal is closed, not who won
	losers := lo.FilterMap(others, func(o model.Offer, _ int) (uuid.UUID, bool) {
		if o.Wholesaler == nil {
			return uuid.Nil, false
		}
		return o.Wholesaler.AccountID, true
	})
	if len(losers) > 0 {
		s.events.Publish(websocket.Event{Type: EventAppraisalUpdated, AppraisalID: appraisal.ID}, losers...)
	}

	res := toOfferResponse(*winner, &winner.ID)
	return &res, nil
}

// ListOffers returns responded offers and silent invitations separately.
func (s *offerService) ListOffers(ctx context.Context, actor authz.Actor, appraisalID string) (*OfferListResponse, error) {
	appraisal, _, err := s.access.authorize(ctx, actor, appraisalID, authz.ViewOffers)
	if err != nil {
		return nil, err
	}
	offers, err := s.offerRepo.ListByAppraisal(ctx, appraisal.ID)
	if err != nil {
		return nil, err
	}

	res := &OfferListResponse{Offers: []OfferResponse{}, Invites: []OfferResponse{}}
	for _, o := range offers {
		item := toOfferResponse(o, appraisal.WinnerID)
		if o.State() == model.OfferInvited {
			res.Invites = append(res.Invites, item)
		} else {
			res.Offers = append(res.Offers, item)
		}
	}
	return res, nil
}

func wholesalerName(o *model.Offer) string {
	if o.Wholesaler == nil {
		return o.WholesalerID.String()
	}
	return o.Wholesaler.Name
}

func toOfferResponse(o model.Offer, winnerID *uuid.UUID) OfferResponse {
	return OfferResponse{
		ID:              o.ID,
		AppraisalID:     o.AppraisalID,
		WholesalerID:    o.WholesalerID,
		WholesalerName:  wholesalerName(&o),
		State:           o.State(),
		Amount:          o.Amount,
		AdjustedAmount:  o.AdjustedAmount,
		EffectiveAmount: o.EffectiveAmount(),
		IsWinner:        winnerID != nil && *winnerID == o.ID,
		UpdatedAt:       o.UpdatedAt,
	}
}
