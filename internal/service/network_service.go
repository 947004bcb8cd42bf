package service

import (
	"context"
	"fmt"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Friend request decisions
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Friend request mailboxes
const (
	BoxSent     = "sent"
	BoxReceived = "received"
)

// SendFriendRequestRequest addresses exactly one of a dealership or a wholesaler.
type SendFriendRequestRequest struct {
	DealershipID string `json:"dealership_id"`
	WholesalerID string `json:"wholesaler_id"`
}

type RespondFriendRequestRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept reject"`
}

type FriendRequestResponse struct {
	ID                      uuid.UUID  `json:"id"`
	SenderID                uuid.UUID  `json:"sender_id"`
	SenderName              string     `json:"sender_name"`
	RecipientDealershipID   *uuid.UUID `json:"recipient_dealership_id,omitempty"`
	RecipientDealershipName string     `json:"recipient_dealership_name,omitempty"`
	RecipientWholesalerID   *uuid.UUID `json:"recipient_wholesaler_id,omitempty"`
	RecipientWholesalerName string     `json:"recipient_wholesaler_name,omitempty"`
	Status                  string     `json:"status"`
	RespondedAt             *time.Time `json:"responded_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

type NetworkService interface {
	SendFriendRequest(ctx context.Context, actor authz.Actor, req SendFriendRequestRequest) (*FriendRequestResponse, error)
	RespondToFriendRequest(ctx context.Context, actor authz.Actor, requestID string, req RespondFriendRequestRequest) (*FriendRequestResponse, error)
	ListFriendRequests(ctx context.Context, actor authz.Actor, box string) ([]FriendRequestResponse, error)
	ListFriends(ctx context.Context, actor authz.Actor) ([]WholesalerResponse, error)
}

type networkService struct {
	requestRepo    repository.FriendRequestRepository
	wholesalerRepo repository.WholesalerRepository
	dealershipRepo repository.DealershipRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewNetworkService(
	requestRepo repository.FriendRequestRepository,
	wholesalerRepo repository.WholesalerRepository,
	dealershipRepo repository.DealershipRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) NetworkService {
	return &networkService{
		requestRepo:    requestRepo,
		wholesalerRepo: wholesalerRepo,
		dealershipRepo: dealershipRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

func (s *networkService) SendFriendRequest(ctx context.Context, actor authz.Actor, req SendFriendRequestRequest) (*FriendRequestResponse, error) {
	if !authz.IsWholesaler(actor) {
		return nil, apperror.Forbidden()
	}
	if (req.DealershipID == "") == (req.WholesalerID == "") {
		return nil, apperror.InvalidState("a friend request must address exactly one of a dealership or a wholesaler")
	}

	request := &model.FriendRequest{
		SenderID: actor.ProfileID,
		Status:   model.FriendRequestPending,
	}
	if req.DealershipID != "" {
		id, err := parseID(req.DealershipID, "dealership")
		if err != nil {
			return nil, err
		}
		dealership, err := s.dealershipRepo.FindByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "dealership")
		}
		if !dealership.IsActive {
			return nil, apperror.NotFound("dealership")
		}
		request.RecipientDealershipID = &dealership.ID
	} else {
		id, err := parseID(req.WholesalerID, "wholesaler")
		if err != nil {
			return nil, err
		}
		if id == actor.ProfileID {
			return nil, apperror.InvalidState("you cannot send a friend request to yourself")
		}
		recipient, err := s.wholesalerRepo.FindByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "wholesaler")
		}
		if !recipient.IsActive {
			return nil, apperror.NotFound("wholesaler")
		}
		request.RecipientWholesalerID = &recipient.ID
	}

	pending, err := s.requestRepo.HasPending(ctx, actor.ProfileID, request.RecipientDealershipID, request.RecipientWholesalerID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.InvalidState("a pending friend request already exists")
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		// lost a race with an identical request
		if repository.IsDuplicate(err) {
			return nil, apperror.InvalidState("a pending friend request already exists")
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	created, err := s.requestRepo.FindByID(ctx, request.ID)
	if err != nil {
		return nil, notFoundOr(err, "friend request")
	}
	res := toFriendRequestResponse(*created)
	return &res, nil
}

// isRecipient reports whether actor answers for the addressed side of r.
func isRecipient(actor authz.Actor, r *model.FriendRequest) bool {
	switch {
	case r.RecipientWholesalerID != nil:
		return authz.IsWholesaler(actor) && actor.ProfileID == *r.RecipientWholesalerID
	case r.RecipientDealershipID != nil:
		return authz.Can(actor, authz.ManageDealership, authz.Resource{DealershipID: *r.RecipientDealershipID})
	}
	return false
}

// canSeeRequest: the sender, the addressed wholesaler and dealers of the addressed dealership.
func canSeeRequest(actor authz.Actor, r *model.FriendRequest) bool {
	if authz.IsWholesaler(actor) && actor.ProfileID == r.SenderID {
		return true
	}
	if r.RecipientDealershipID != nil {
		return authz.BelongsToSameDealership(actor, *r.RecipientDealershipID)
	}
	return isRecipient(actor, r)
}

func (s *networkService) RespondToFriendRequest(ctx context.Context, actor authz.Actor, requestID string, req RespondFriendRequestRequest) (*FriendRequestResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if req.Decision != DecisionAccept && req.Decision != DecisionReject {
		return nil, apperror.Validation("decision must be accept or reject")
	}
	id, err := parseID(requestID, "friend request")
	if err != nil {
		return nil, err
	}
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "friend request")
	}
	if !canSeeRequest(actor, request) {
		return nil, apperror.NotFound("friend request")
	}
	if !isRecipient(actor, request) {
		return nil, apperror.Forbidden()
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.requestRepo.FindForUpdate(txCtx, request.ID)
		if err != nil {
			return notFoundOr(err, "friend request")
		}
		if !locked.IsPending() {
			return apperror.InvalidState("friend request has already been %s", locked.Status)
		}

		now := time.Now()
		locked.RespondedBy = accountRef(actor)
		locked.RespondedAt = &now
		action := model.ActionRejectFriendRequest
		locked.Status = model.FriendRequestRejected
		if req.Decision == DecisionAccept {
			action = model.ActionAcceptFriendRequest
			locked.Status = model.FriendRequestAccepted
			switch {
			case locked.RecipientDealershipID != nil:
				err = s.dealershipRepo.AddWholesaler(txCtx, *locked.RecipientDealershipID, locked.SenderID)
			case locked.RecipientWholesalerID != nil:
				err = s.wholesalerRepo.AddFriends(txCtx, locked.SenderID, *locked.RecipientWholesalerID)
			}
			if err != nil {
				return fmt.Errorf("failed to connect parties: %w", err)
			}
		}
		if err := s.requestRepo.Update(txCtx, locked); err != nil {
			return fmt.Errorf("failed to update friend request: %w", err)
		}

		var dealershipID uuid.UUID
		if locked.RecipientDealershipID != nil {
			dealershipID = *locked.RecipientDealershipID
		}
		return recordAudit(txCtx, s.auditRepo, actor, dealershipID, action,
			locked.ID.String(), partyName(request.Sender), map[string]any{"sender_id": locked.SenderID})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.requestRepo.FindByID(ctx, request.ID)
	if err != nil {
		return nil, notFoundOr(err, "friend request")
	}
	res := toFriendRequestResponse(*updated)
	return &res, nil
}

// ListFriendRequests filters rather than fails: actors with no mailbox get an empty list.
func (s *networkService) ListFriendRequests(ctx context.Context, actor authz.Actor, box string) ([]FriendRequestResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	var (
		requests []model.FriendRequest
		err      error
	)
	switch box {
	case BoxSent:
		if authz.IsWholesaler(actor) {
			requests, err = s.requestRepo.ListSent(ctx, actor.ProfileID)
		}
	case BoxReceived:
		switch actor.Kind {
		case authz.KindWholesaler:
			profileID := actor.ProfileID
			requests, err = s.requestRepo.ListReceived(ctx, &profileID, nil)
		case authz.KindManagement:
			requests, err = s.requestRepo.ListReceived(ctx, nil, actor.DealershipIDs)
		case authz.KindSales, authz.KindNone:
		}
	default:
		return nil, apperror.Validation("box must be sent or received")
	}
	if err != nil {
		return nil, err
	}

	return lo.Map(requests, func(r model.FriendRequest, _ int) FriendRequestResponse {
		return toFriendRequestResponse(r)
	}), nil
}

func (s *networkService) ListFriends(ctx context.Context, actor authz.Actor) ([]WholesalerResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if !authz.IsWholesaler(actor) {
		return []WholesalerResponse{}, nil
	}
	friends, err := s.wholesalerRepo.ListFriends(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	return lo.Map(friends, func(p model.WholesalerProfile, _ int) WholesalerResponse {
		return toWholesalerResponse(p)
	}), nil
}

func partyName(p *model.WholesalerProfile) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func toFriendRequestResponse(r model.FriendRequest) FriendRequestResponse {
	res := FriendRequestResponse{
		ID:                      r.ID,
		SenderID:                r.SenderID,
		SenderName:              partyName(r.Sender),
		RecipientDealershipID:   r.RecipientDealershipID,
		RecipientWholesalerID:   r.RecipientWholesalerID,
		RecipientWholesalerName: partyName(r.RecipientWholesaler),
		Status:                  r.Status,
		RespondedAt:             r.RespondedAt,
		CreatedAt:               r.CreatedAt,
	}
	if r.RecipientDealership != nil {
		res.RecipientDealershipName = r.RecipientDealership.Name
	}
	return res
}
