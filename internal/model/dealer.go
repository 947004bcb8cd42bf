package model

import (
	"github.com/google/uuid"
)

// DealerRole enum constants
const (
	DealerRoleManagement = "management"
	DealerRoleSales      = "sales"
)

// AustralianStates lists the state codes accepted for dealership and wholesaler addresses.
var AustralianStates = map[string]string{
	"NSW": "New South Wales",
	"QLD": "Queensland",
	"SA":  "South Australia",
	"TAS": "Tasmania",
	"VIC": "Victoria",
	"WA":  "Western Australia",
	"ACT": "Australian Capital Territory",
	"NT":  "Northern Territory",
}

// Dealership is the tenancy boundary: only dealer profiles in DealerProfiles may see or act
// on its appraisals. Wholesalers holds the wholesalers granted access to its appraisals.
type Dealership struct {
	Base
	Name           string              `gorm:"type:varchar(100);not null" json:"name"`
	Slug           string              `gorm:"type:varchar(120);index" json:"slug"`
	StreetAddress  string              `gorm:"type:varchar(255)" json:"street_address"`
	Suburb         string              `gorm:"type:varchar(100)" json:"suburb"`
	State          string              `gorm:"type:varchar(3)" json:"state"`
	Postcode       string              `gorm:"type:varchar(4)" json:"postcode"`
	Email          string              `gorm:"type:varchar(255)" json:"email"`
	Phone          string              `gorm:"type:varchar(15)" json:"phone"`
	IsActive       bool                `gorm:"not null;default:true" json:"is_active"`
	DealerProfiles []DealerProfile     `gorm:"many2many:dealer_profile_dealerships;" json:"-"`
	Wholesalers    []WholesalerProfile `gorm:"many2many:dealership_wholesalers;" json:"-"`
}

// DealerProfile attaches a management or sales role to an account.
type DealerProfile struct {
	Base
	AccountID   uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"account_id"`
	Account     *Account     `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Role        string       `gorm:"type:varchar(20);not null;index" json:"role"` // management, sales
	Phone       string       `gorm:"type:varchar(15)" json:"phone"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`
	Dealerships []Dealership `gorm:"many2many:dealer_profile_dealerships;" json:"dealerships,omitempty"`
}

func (p *DealerProfile) IsManagement() bool {
	return p.Role == DealerRoleManagement
}

// DealershipIDs returns the ids of the loaded Dealerships association.
func (p *DealerProfile) DealershipIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Dealerships))
	for _, d := range p.Dealerships {
		ids = append(ids, d.ID)
	}
	return ids
}
