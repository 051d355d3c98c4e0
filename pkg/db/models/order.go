package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// Order is the immutable purchase produced from a checked-out cart. The cart
// lines are frozen into ItemsSnapshot at creation and never touched again.
type Order struct {
	ID                       uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID                   uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CartID                   uuid.UUID              `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	Status                   enums.OrderStatus      `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PreferredPaymentProvider *enums.PaymentProvider `gorm:"column:preferred_payment_provider;type:text"`
	Subtotal                 string                 `gorm:"column:subtotal;type:text;not null"`
	TotalAmount              string                 `gorm:"column:total_amount;type:text;not null"`
	Currency                 enums.Currency         `gorm:"column:currency;type:text;not null;default:'EUR'"`
	ItemsSnapshot            types.ItemSnapshots    `gorm:"column:items_snapshot;type:jsonb;serializer:json"`
	Cart                     *Cart                  `gorm:"foreignKey:CartID;references:ID"`
	Payments                 []Payment              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt                time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
