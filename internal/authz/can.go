package authz

import (
	"github.com/google/uuid"
)

// Action names an operation guarded by Can.
type Action int

const (
	ViewAppraisal Action = iota
	CreateAppraisal
	UpdateAppraisal
	SubmitAppraisal
	DeactivateAppraisal
	DuplicateAppraisal
	CommentAppraisal
	AddDamage
	InviteWholesalers
	ViewOffers
	AdjustOffer
	SelectWinner
	RespondToAppraisal
	ManageDealer
	ManageDealership
	EditWholesalerProfile
	ViewReports
)

// Resource is the slice of a target's state the checks need.
type Resource struct {
	// DealershipID owns the appraisal or is the dealership being managed.
	DealershipID uuid.UUID
	// OwnerAccountID owns a profile or an offer.
	OwnerAccountID uuid.UUID
	// TargetDealershipIDs are the dealerships of a dealer profile being managed.
	TargetDealershipIDs []uuid.UUID
	// Invited is true when the acting wholesaler already has an offer row.
	Invited bool
}

// Can evaluates the per-operation rule for action. Operations call it first thing and
// turn false into a Forbidden or NotFound error.
func Can(a Actor, action Action, r Resource) bool {
	if !a.IsAuthenticated() {
		return false
	}

	switch action {
	case ViewAppraisal:
		if IsWholesaler(a) {
			return r.Invited || HasDealershipAccess(a, r.DealershipID)
		}
		return BelongsToSameDealership(a, r.DealershipID)
	case CreateAppraisal, SubmitAppraisal, DuplicateAppraisal, AddDamage:
		return IsSalesOrManagementDealer(a) && BelongsToSameDealership(a, r.DealershipID)
	case CommentAppraisal:
		if IsWholesaler(a) {
			return r.Invited || HasDealershipAccess(a, r.DealershipID)
		}
		return BelongsToSameDealership(a, r.DealershipID)
	case UpdateAppraisal, DeactivateAppraisal, InviteWholesalers, ViewOffers, AdjustOffer, SelectWinner, ViewReports, ManageDealership:
		return IsManagementDealer(a) && BelongsToSameDealership(a, r.DealershipID)
	case RespondToAppraisal:
		// self-service only; a dealer can never bid on a wholesaler's behalf
		return IsWholesaler(a) &&
			OwnsProfile(a, r.OwnerAccountID) &&
			(r.Invited || HasDealershipAccess(a, r.DealershipID))
	case ManageDealer:
		return IsManagementDealer(a) && SharesDealership(a, r.TargetDealershipIDs)
	case EditWholesalerProfile:
		return IsWholesaler(a) && OwnsProfile(a, r.OwnerAccountID)
	}
	return false
}
