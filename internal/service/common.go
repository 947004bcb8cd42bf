package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/internal/websocket"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// Event types pushed over the websocket hub.
const (
	EventAppraisalCreated = "appraisal.created"
	EventAppraisalUpdated = "appraisal.updated"
	EventOfferInvited     = "offer.invited"
	EventOfferUpdated     = "offer.updated"
	EventWinnerSelected   = "winner.selected"
)

// EventPublisher pushes an event to the given accounts. *websocket.Hub satisfies it.
type EventPublisher interface {
	Publish(ev websocket.Event, audience ...uuid.UUID)
}

type discardPublisher struct{}

func (discardPublisher) Publish(websocket.Event, ...uuid.UUID) {}

// DiscardEvents is an EventPublisher that drops everything.
var DiscardEvents EventPublisher = discardPublisher{}

var textPolicy = bluemonday.StrictPolicy()

// sanitize strips markup from free text supplied by users.
func sanitize(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// parseID treats a malformed id like a missing record.
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound(what)
	}
	return id, nil
}

// notFoundOr converts gorm's not-found into the NotFound kind and wraps anything else.
func notFoundOr(err error, what string) error {
	if repository.IsNotFound(err) {
		return apperror.NotFound(what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func requireAuthenticated(actor authz.Actor) error {
	if !actor.IsAuthenticated() {
		return apperror.Forbidden()
	}
	return nil
}

func positive(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return apperror.Validation("%s must be a positive amount", field)
	}
	return nil
}

func accountRef(actor authz.Actor) *uuid.UUID {
	if actor.AccountID == uuid.Nil {
		return nil
	}
	id := actor.AccountID
	return &id
}

// recordAudit writes one audit row; call it inside the transaction of the change it records.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor authz.Actor, dealershipID uuid.UUID, action, entityID, entityName string, details any) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		AccountID:  accountRef(actor),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if dealershipID != uuid.Nil {
		entry.DealershipID = &dealershipID
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
