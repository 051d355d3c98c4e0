package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// Cart is the single editable basket a user accumulates items into. At most
// one ACTIVE cart exists per user, enforced by a partial unique index.
type Cart struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Status    enums.CartStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	Currency  enums.Currency   `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Subtotal  string           `gorm:"column:subtotal;type:text;not null;default:'0.00'"`
	Total     string           `gorm:"column:total;type:text;not null;default:'0.00'"`
	Items     []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
