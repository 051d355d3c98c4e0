package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// OrderList is one page of a user's order history.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// StatusView is the lightweight payload behind the status polling endpoint.
type StatusView struct {
	OrderID     uuid.UUID         `json:"orderId"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount string            `json:"totalAmount"`
	Currency    enums.Currency    `json:"currency"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
