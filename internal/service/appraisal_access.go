package service

import (
	"context"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
)

// appraisalAccess applies the visibility rules every appraisal-scoped operation starts with.
type appraisalAccess struct {
	appraisalRepo repository.AppraisalRepository
}

// ownOffer picks the actor's offer out of the loaded offers. Only wholesalers own offers.
func ownOffer(actor authz.Actor, offers []model.Offer) *model.Offer {
	if actor.Kind != authz.KindWholesaler {
		return nil
	}
	for i := range offers {
		if offers[i].WholesalerID == actor.ProfileID {
			return &offers[i]
		}
	}
	return nil
}

func resourceOf(a *model.Appraisal, own *model.Offer) authz.Resource {
	return authz.Resource{DealershipID: a.DealershipID, Invited: own != nil}
}

// canSee ignores is_active: a trashed appraisal stays visible so every observer reads Trashed.
func canSee(actor authz.Actor, a *model.Appraisal, own *model.Offer) bool {
	return authz.Can(actor, authz.ViewAppraisal, resourceOf(a, own))
}

// load returns the appraisal with its children and the actor's own offer. Appraisals
// outside the actor's visible set are reported as missing.
func (x appraisalAccess) load(ctx context.Context, actor authz.Actor, rawID string) (*model.Appraisal, *model.Offer, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, nil, err
	}
	id, err := parseID(rawID, "appraisal")
	if err != nil {
		return nil, nil, err
	}
	return x.loadByID(ctx, actor, id)
}

func (x appraisalAccess) loadByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*model.Appraisal, *model.Offer, error) {
	appraisal, err := x.appraisalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, "appraisal")
	}
	own := ownOffer(actor, appraisal.Offers)
	if !canSee(actor, appraisal, own) {
		return nil, nil, apperror.NotFound("appraisal")
	}
	return appraisal, own, nil
}

// authorize loads a visible appraisal and checks action on it.
func (x appraisalAccess) authorize(ctx context.Context, actor authz.Actor, rawID string, action authz.Action) (*model.Appraisal, *model.Offer, error) {
	appraisal, own, err := x.load(ctx, actor, rawID)
	if err != nil {
		return nil, nil, err
	}
	if !authz.Can(actor, action, resourceOf(appraisal, own)) {
		return nil, nil, apperror.Forbidden()
	}
	return appraisal, own, nil
}

// requireOpen rejects changes once an appraisal is trashed or has a winner.
func requireOpen(a *model.Appraisal) error {
	if !a.IsActive {
		return apperror.InvalidState("appraisal has been deactivated")
	}
	if a.HasWinner() {
		return apperror.InvalidState("a winner has already been selected")
	}
	return nil
}
