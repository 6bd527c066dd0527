package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/newsapi-backend/pkg/enums"
)

// Subscription is a time-bounded grant of a plan to a user. Rows are never
// deleted; a user's history is the set of all their rows.
type Subscription struct {
	ID        uuid.UUID                `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID    uuid.UUID                `gorm:"column:plan_id;type:uuid;not null;index"`
	Plan      *Plan                    `gorm:"foreignKey:PlanID;references:ID"`
	Status    enums.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	StartDate time.Time                `gorm:"column:start_date;not null"`
	EndDate   time.Time                `gorm:"column:end_date;not null;index"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsCurrentlyActive requires both the active status and now inside [start, end).
func (s Subscription) IsCurrentlyActive(now time.Time) bool {
	if s.Status != enums.SubscriptionStatusActive {
		return false
	}
	return !now.Before(s.StartDate) && now.Before(s.EndDate)
}

// DaysRemaining is the number of started days left before EndDate, never negative.
func (s Subscription) DaysRemaining(now time.Time) int {
	left := s.EndDate.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
