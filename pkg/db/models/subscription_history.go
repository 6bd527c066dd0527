package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/newsapi-backend/pkg/enums"
)

// SubscriptionHistory is an append-only audit entry. UserID is copied from the
// subscription so a user's trail can be listed without a join.
type SubscriptionHistory struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SubscriptionID uuid.UUID           `gorm:"column:subscription_id;type:uuid;not null;index"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Action         enums.HistoryAction `gorm:"column:action;type:varchar(16);not null"`
	Description    string              `gorm:"column:description;not null;default:''"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}

func (h *SubscriptionHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
