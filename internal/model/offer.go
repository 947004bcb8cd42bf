package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferState is derived from Amount and Passed.
type OfferState string

const (
	OfferInvited OfferState = "invited"
	OfferBid     OfferState = "bid"
	OfferPassed  OfferState = "passed"
)

// Offer joins an appraisal and a wholesaler. There is at most one row per pair.
//
//	invited: Amount null, Passed false
//	bid:     Amount set,  Passed false
//	passed:  Amount null, Passed true
//
// AdjustedAmount is a management-only markup/markdown and never touches Amount.
type Offer struct {
	Base
	AppraisalID    uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_offer_appraisal_wholesaler" json:"appraisal_id"`
	WholesalerID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_offer_appraisal_wholesaler;index" json:"wholesaler_id"`
	Wholesaler     *WholesalerProfile  `gorm:"foreignKey:WholesalerID" json:"wholesaler,omitempty"`
	Amount         decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount"`
	AdjustedAmount decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"adjusted_amount"`
	Passed         bool                `gorm:"not null;default:false" json:"passed"`
}

func (o *Offer) State() OfferState {
	switch {
	case o.Passed:
		return OfferPassed
	case o.Amount.Valid:
		return OfferBid
	default:
		return OfferInvited
	}
}

// EffectiveAmount is what management settles on: the adjusted amount when set.
func (o *Offer) EffectiveAmount() decimal.NullDecimal {
	if o.AdjustedAmount.Valid {
		return o.AdjustedAmount
	}
	return o.Amount
}
