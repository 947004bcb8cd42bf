package authz

import (
	"github.com/google/uuid"
)

func IsManagementDealer(a Actor) bool {
	return a.IsAuthenticated() && a.Kind == KindManagement
}

func IsSalesOrManagementDealer(a Actor) bool {
	return a.IsAuthenticated() && a.IsDealer()
}

func IsWholesaler(a Actor) bool {
	return a.IsAuthenticated() && a.Kind == KindWholesaler
}

// BelongsToSameDealership is the tenancy check: the dealer works at the owning dealership.
func BelongsToSameDealership(a Actor, dealershipID uuid.UUID) bool {
	return IsSalesOrManagementDealer(a) && a.inDealership(dealershipID)
}

// SharesDealership reports whether the dealer works at any of the given dealerships.
func SharesDealership(a Actor, dealershipIDs []uuid.UUID) bool {
	if !IsSalesOrManagementDealer(a) {
		return false
	}
	for _, id := range dealershipIDs {
		if a.inDealership(id) {
			return true
		}
	}
	return false
}

// OwnsProfile is true iff the resource belongs to the actor's own account.
func OwnsProfile(a Actor, ownerAccountID uuid.UUID) bool {
	return a.IsAuthenticated() && ownerAccountID != uuid.Nil && a.AccountID == ownerAccountID
}

// HasDealershipAccess reports whether a wholesaler was granted access by the dealership.
func HasDealershipAccess(a Actor, dealershipID uuid.UUID) bool {
	return IsWholesaler(a) && a.inDealership(dealershipID)
}
