// Package lifecycle derives the status label an observer sees for an appraisal.
// Nothing here is stored; callers recompute on every read.
package lifecycle

import (
	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
)

type Status string

const (
	StatusTrashed           Status = "Trashed"
	StatusComplete          Status = "Complete"
	StatusPendingManagement Status = "Pending - Management"
	StatusPendingSales      Status = "Pending - Sales"
	StatusInvited           Status = "Invited"
	StatusOffered           Status = "Offered"
	StatusPassed            Status = "Passed"
	StatusActive            Status = "Active"
)

// Derive computes the status of a for observer. own is the observer's own offer row when
// the observer is a wholesaler (nil if none); it is ignored for dealers.
//
// Trashed and Complete dominate every other rule.
func Derive(a *model.Appraisal, observer authz.Actor, own *model.Offer) Status {
	if !a.IsActive {
		return StatusTrashed
	}
	if a.HasWinner() {
		return StatusComplete
	}

	switch observer.Kind {
	case authz.KindManagement:
		if a.ReadyForManagement {
			return StatusPendingManagement
		}
	case authz.KindSales:
		if !a.ReadyForManagement {
			return StatusPendingSales
		}
	case authz.KindWholesaler:
		return OfferStatus(own)
	case authz.KindNone:
	}
	return StatusActive
}

// OfferStatus maps a wholesaler's own offer row onto the label it sees.
func OfferStatus(own *model.Offer) Status {
	if own == nil {
		return StatusInvited
	}
	switch own.State() {
	case model.OfferBid:
		return StatusOffered
	case model.OfferPassed:
		return StatusPassed
	case model.OfferInvited:
		return StatusInvited
	}
	return StatusInvited
}
