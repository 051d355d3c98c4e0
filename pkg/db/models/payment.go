package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// Payment tracks a single attempt to settle an order through a provider.
// ExternalID is the provider-side reference webhooks correlate on.
type Payment struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Provider    enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	Status      enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Amount      string                `gorm:"column:amount;type:text;not null"`
	Currency    enums.Currency        `gorm:"column:currency;type:text;not null;default:'EUR'"`
	ExternalID  *string               `gorm:"column:external_id;type:text;index"`
	Metadata    types.JSONMap         `gorm:"column:metadata;type:jsonb;serializer:json"`
	RawResponse types.JSONMap         `gorm:"column:raw_response;type:jsonb;serializer:json"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
