package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// CartItem persists a product line inside a cart. The same product appears at
// most once per cart; adding it again merges quantities.
type CartItem struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID      `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_product"`
	ProductID string         `gorm:"column:product_id;type:text;not null;uniqueIndex:idx_cart_items_cart_product"`
	Name      string         `gorm:"column:name;type:text;not null"`
	Quantity  int            `gorm:"column:quantity;not null"`
	UnitPrice string         `gorm:"column:unit_price;type:text;not null"`
	Subtotal  string         `gorm:"column:subtotal;type:text;not null"`
	Currency  enums.Currency `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Metadata  types.JSONMap  `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
