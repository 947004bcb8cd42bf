// Package authz answers whether an actor may perform an action on a resource.
// Every check is a pure function over already-loaded state and defaults to deny.
package authz

import (
	"github.com/google/uuid"
)

// Kind tags which profile an account acts through.
type Kind int

const (
	KindNone Kind = iota
	KindManagement
	KindSales
	KindWholesaler
)

func (k Kind) String() string {
	switch k {
	case KindManagement:
		return "management"
	case KindSales:
		return "sales"
	case KindWholesaler:
		return "wholesaler"
	default:
		return "none"
	}
}

// Actor is the authenticated caller resolved to exactly one profile kind.
//
// For dealers DealershipIDs holds the active dealerships they work at. For wholesalers it
// holds the active dealerships that granted them access.
type Actor struct {
	AccountID     uuid.UUID
	Kind          Kind
	ProfileID     uuid.UUID
	DealershipIDs []uuid.UUID
}

// Anonymous is the zero actor. Every predicate denies it.
var Anonymous = Actor{}

func (a Actor) IsAuthenticated() bool {
	return a.Kind != KindNone && a.AccountID != uuid.Nil
}

func (a Actor) IsDealer() bool {
	switch a.Kind {
	case KindManagement, KindSales:
		return true
	case KindWholesaler, KindNone:
		return false
	}
	return false
}

func (a Actor) inDealership(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	for _, d := range a.DealershipIDs {
		if d == id {
			return true
		}
	}
	return false
}
