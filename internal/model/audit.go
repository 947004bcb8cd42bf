package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateAppraisal      = "CREATE_APPRAISAL"
	ActionUpdateAppraisal      = "UPDATE_APPRAISAL"
	ActionDeactivateAppraisal  = "DEACTIVATE_APPRAISAL"
	ActionDuplicateAppraisal   = "DUPLICATE_APPRAISAL"
	ActionInviteWholesalers    = "INVITE_WHOLESALERS"
	ActionAdjustOffer          = "ADJUST_OFFER"
	ActionSelectWinner         = "SELECT_WINNER"
	ActionChangeDealerRole     = "CHANGE_DEALER_ROLE"
	ActionDeactivateDealer     = "DEACTIVATE_DEALER"
	ActionDeactivateDealership = "DEACTIVATE_DEALERSHIP"
	ActionDeactivateWholesaler = "DEACTIVATE_WHOLESALER"
	ActionAcceptFriendRequest  = "ACCEPT_FRIEND_REQUEST"
	ActionRejectFriendRequest  = "REJECT_FRIEND_REQUEST"
)

// AuditLog tracks who changed what on the management side. Wholesaler bid amounts are
// deliberately absent: offers keep no history.
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    *uuid.UUID `gorm:"type:uuid;index" json:"account_id"`
	Account      *Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	DealershipID *uuid.UUID `gorm:"type:uuid;index" json:"dealership_id"`
	Action       string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID     string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName   string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details      string     `gorm:"type:text" json:"details"` // JSON payload
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (l *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
