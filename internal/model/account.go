package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the login identity. It owns at most one of DealerProfile or WholesalerProfile.
type Account struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Username          string             `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email             string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName         string             `gorm:"type:varchar(150)" json:"first_name"`
	LastName          string             `gorm:"type:varchar(150)" json:"last_name"`
	Password          string             `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	DealerProfile     *DealerProfile     `gorm:"foreignKey:AccountID" json:"dealer_profile,omitempty"`
	WholesalerProfile *WholesalerProfile `gorm:"foreignKey:AccountID" json:"wholesaler_profile,omitempty"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`
}

func (a *Account) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// FullName joins first and last name, falling back to the username.
func (a *Account) FullName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.LastName != "":
		return a.LastName
	}
	return a.Username
}
