package model

import (
	"github.com/shopspring/decimal"
)

// ReportResponse aggregates settled appraisal facts for the dealerships a manager works at.
type ReportResponse struct {
	TotalAppraisals int64              `json:"total_appraisals"`
	ActiveCount     int64              `json:"active_count"`
	CompleteCount   int64              `json:"complete_count"`
	TrashedCount    int64              `json:"trashed_count"`
	TopVehicleMakes []VehicleMakeCount `json:"top_vehicle_makes"`
	WholesalerWins  []WholesalerWins   `json:"wholesaler_wins"`
	ProfitLoss      decimal.Decimal    `json:"profit_loss"`
}

// VehicleMakeCount is one row of the common-vehicle ranking.
type VehicleMakeCount struct {
	VehicleMake string `json:"vehicle_make"`
	Total       int64  `json:"total"`
}

// WholesalerWins counts appraisals won by a wholesaler.
type WholesalerWins struct {
	WholesalerID   string `json:"wholesaler_id"`
	WholesalerName string `json:"wholesaler_name"`
	Wins           int64  `json:"wins"`
}

// SettledAppraisal pairs a completed appraisal's reserve with its winning offer amounts.
type SettledAppraisal struct {
	AppraisalID    string              `json:"appraisal_id"`
	ReservePrice   decimal.Decimal     `json:"reserve_price"`
	Amount         decimal.NullDecimal `json:"amount"`
	AdjustedAmount decimal.NullDecimal `json:"adjusted_amount"`
}

// Margin is the effective winning amount minus the reserve price.
func (s SettledAppraisal) Margin() decimal.Decimal {
	effective := s.Amount
	if s.AdjustedAmount.Valid {
		effective = s.AdjustedAmount
	}
	if !effective.Valid {
		return decimal.Zero
	}
	return effective.Decimal.Sub(s.ReservePrice)
}
