package service

import (
	"context"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"
	"appraisal-backend/pkg/pagination"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Username     string `json:"username"`
	DealershipID string `json:"dealership_id"`
	Action       string `json:"action"`
	EntityID     string `json:"entity_id"`
	EntityName   string `json:"entity_name"`
	Details      string `json:"details"`
	CreatedAt    string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor authz.Actor, dealershipID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs pages through the log of the dealerships a manager works at.
func (s *auditService) GetAuditLogs(ctx context.Context, actor authz.Actor, dealershipID string, page, limit int) ([]AuditLogResponse, int64, error) {
	if !authz.IsManagementDealer(actor) {
		return nil, 0, apperror.Forbidden()
	}
	params := pagination.New(page, limit, "")

	ids := actor.DealershipIDs
	if dealershipID != "" {
		id, err := parseID(dealershipID, "dealership")
		if err != nil {
			return nil, 0, err
		}
		if !authz.BelongsToSameDealership(actor, id) {
			return nil, 0, apperror.NotFound("dealership")
		}
		ids = []uuid.UUID{id}
	}

	logs, total, err := s.repo.List(ctx, ids, params.Page, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		accountID := ""
		dealership := ""
		if l.Account != nil {
			username = l.Account.Username
		}
		if l.AccountID != nil {
			accountID = l.AccountID.String()
		}
		if l.DealershipID != nil {
			dealership = l.DealershipID.String()
		}

		res = append(res, AuditLogResponse{
			ID:           l.ID.String(),
			AccountID:    accountID,
			Username:     username,
			DealershipID: dealership,
			Action:       l.Action,
			EntityID:     l.EntityID,
			EntityName:   l.EntityName,
			Details:      l.Details,
			CreatedAt:    l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
