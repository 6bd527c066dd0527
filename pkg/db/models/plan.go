package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is a priced, timed subscription tier. Features is kept as the raw map
// administrators author; only keys known to enums.Feature grant anything.
type Plan struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Name           string            `gorm:"column:name;not null"`
	Description    string            `gorm:"column:description;not null;default:''"`
	Price          decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	DurationDays   int               `gorm:"column:duration_days;not null"`
	Features       datatypes.JSONMap `gorm:"column:features"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true"`
	BillingPriceID *string           `gorm:"column:billing_price_id"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Features == nil {
		p.Features = datatypes.JSONMap{}
	}
	return nil
}

// Duration converts DurationDays into a time.Duration.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// FeatureEnabled reports whether key is set to boolean true in the feature map.
// Counts, strings and other payloads never enable a feature.
func (p Plan) FeatureEnabled(key string) bool {
	if p.Features == nil {
		return false
	}
	enabled, ok := p.Features[key].(bool)
	return ok && enabled
}
