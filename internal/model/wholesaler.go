package model

import (
	"time"

	"github.com/google/uuid"
)

// WholesalerProfile is a bidding buyer. Friends is symmetric and only grows through
// accepted FriendRequests.
type WholesalerProfile struct {
	Base
	AccountID     uuid.UUID            `gorm:"type:uuid;uniqueIndex;not null" json:"account_id"`
	Account       *Account             `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Name          string               `gorm:"type:varchar(100);not null" json:"wholesaler_name"`
	StreetAddress string               `gorm:"type:varchar(255)" json:"street_address"`
	Suburb        string               `gorm:"type:varchar(100)" json:"suburb"`
	State         string               `gorm:"type:varchar(3)" json:"state"`
	Postcode      string               `gorm:"type:varchar(4)" json:"postcode"`
	Email         string               `gorm:"type:varchar(255)" json:"email"`
	Phone         string               `gorm:"type:varchar(15)" json:"phone"`
	IsActive      bool                 `gorm:"not null;default:true" json:"is_active"`
	Friends       []*WholesalerProfile `gorm:"many2many:wholesaler_friends;joinForeignKey:WholesalerID;joinReferences:FriendID" json:"-"`
	Dealerships   []Dealership         `gorm:"many2many:dealership_wholesalers;" json:"-"`
}

// FriendRequestStatus enum constants
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

// FriendRequest is a directed edge from a wholesaler to exactly one of a dealership or
// another wholesaler. At most one pending request exists per (sender, recipient).
type FriendRequest struct {
	Base
	SenderID              uuid.UUID          `gorm:"type:uuid;not null;index;index:idx_pending_dealership_request,unique,where:status = 'pending';index:idx_pending_wholesaler_request,unique,where:status = 'pending'" json:"sender_id"`
	Sender                *WholesalerProfile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	RecipientDealershipID *uuid.UUID         `gorm:"type:uuid;index;index:idx_pending_dealership_request,unique,where:status = 'pending'" json:"recipient_dealership_id"`
	RecipientDealership   *Dealership        `gorm:"foreignKey:RecipientDealershipID" json:"recipient_dealership,omitempty"`
	RecipientWholesalerID *uuid.UUID         `gorm:"type:uuid;index;index:idx_pending_wholesaler_request,unique,where:status = 'pending'" json:"recipient_wholesaler_id"`
	RecipientWholesaler   *WholesalerProfile `gorm:"foreignKey:RecipientWholesalerID" json:"recipient_wholesaler,omitempty"`
	Status                string             `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RespondedBy           *uuid.UUID         `gorm:"type:uuid" json:"responded_by"`
	RespondedAt           *time.Time         `json:"responded_at"`
}

func (r *FriendRequest) IsPending() bool {
	return r.Status == FriendRequestPending
}
