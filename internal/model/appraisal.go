package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Appraisal is a vehicle a dealership wants wholesale offers on. Its lifecycle status is
// never stored; it is derived from IsActive, WinnerID and ReadyForManagement on every read.
type Appraisal struct {
	Base
	DealershipID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"dealership_id"`
	Dealership           *Dealership    `gorm:"foreignKey:DealershipID" json:"dealership,omitempty"`
	InitiatingDealerID   uuid.UUID      `gorm:"type:uuid;not null;index;<-:create" json:"initiating_dealer_id"`
	InitiatingDealer     *DealerProfile `gorm:"foreignKey:InitiatingDealerID" json:"initiating_dealer,omitempty"`
	LastUpdatingDealerID *uuid.UUID     `gorm:"type:uuid;index" json:"last_updating_dealer_id"`
	LastUpdatingDealer   *DealerProfile `gorm:"foreignKey:LastUpdatingDealerID" json:"last_updating_dealer,omitempty"`
	IsActive             bool           `gorm:"not null;default:true;index" json:"is_active"`
	ReadyForManagement   bool           `gorm:"not null;default:false" json:"ready_for_management"`

	// Customer
	CustomerFirstName string `gorm:"type:varchar(50)" json:"customer_first_name"`
	CustomerLastName  string `gorm:"type:varchar(50)" json:"customer_last_name"`
	CustomerEmail     string `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerPhone     string `gorm:"type:varchar(15)" json:"customer_phone"`

	// Vehicle
	VehicleMake         string `gorm:"type:varchar(50);index" json:"vehicle_make"`
	VehicleModel        string `gorm:"type:varchar(50)" json:"vehicle_model"`
	VehicleYear         int    `json:"vehicle_year"`
	VehicleVIN          string `gorm:"column:vehicle_vin;type:varchar(17)" json:"vehicle_vin"`
	VehicleRegistration string `gorm:"type:varchar(10)" json:"vehicle_registration"`
	Color               string `gorm:"type:varchar(50)" json:"color"`
	OdometerReading     int    `json:"odometer_reading"`
	EngineType          string `gorm:"type:varchar(100)" json:"engine_type"`
	Transmission        string `gorm:"type:varchar(100)" json:"transmission"`
	BodyType            string `gorm:"type:varchar(20)" json:"body_type"`
	FuelType            string `gorm:"type:varchar(20)" json:"fuel_type"`

	ReservePrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"reserve_price"`

	// WinnerID points at one of this appraisal's Offers. The unique index keeps an offer
	// from winning twice; the service keeps it inside the appraisal.
	WinnerID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"winner_id"`

	Damages  []Damage  `gorm:"foreignKey:AppraisalID;constraint:OnDelete:CASCADE" json:"damages,omitempty"`
	Comments []Comment `gorm:"foreignKey:AppraisalID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Photos   []Photo   `gorm:"foreignKey:AppraisalID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`
	Offers   []Offer   `gorm:"foreignKey:AppraisalID;constraint:OnDelete:CASCADE" json:"offers,omitempty"`
}

func (a *Appraisal) HasWinner() bool {
	return a.WinnerID != nil
}

// IsOpen reports whether wholesalers may still respond.
func (a *Appraisal) IsOpen() bool {
	return a.IsActive && a.WinnerID == nil
}

// Damage is a single damage note with a repair estimate.
type Damage struct {
	Base
	AppraisalID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"appraisal_id"`
	Description        string          `gorm:"type:text" json:"description"`
	Location           string          `gorm:"type:varchar(100)" json:"location"`
	RepairCostEstimate decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"repair_cost_estimate"`
}

// Comment on an appraisal. Private comments are only shown to management.
type Comment struct {
	Base
	AppraisalID uuid.UUID `gorm:"type:uuid;not null;index" json:"appraisal_id"`
	AuthorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Author      *Account  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"is_private"`
}

// PhotoKind enum constants
const (
	PhotoKindVehicle = "vehicle"
	PhotoKindDamage  = "damage"
)

// Photo references an image held by external storage.
type Photo struct {
	Base
	AppraisalID uuid.UUID `gorm:"type:uuid;not null;index" json:"appraisal_id"`
	Kind        string    `gorm:"type:varchar(20);not null;default:'vehicle'" json:"kind"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Description string    `gorm:"type:varchar(100)" json:"description"`
	Location    string    `gorm:"type:varchar(100)" json:"location"`
}
