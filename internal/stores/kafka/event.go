package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

const TopicOrderCreated = `order-service.order-created`

// OrderCreatedEvent is published after a checkout commits so downstream
// consumers (fulfilment, email) can react.
type OrderCreatedEvent struct {
	OrderID   int64              `json:"order_id"`
	UserID    int64              `json:"user_id"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	Items     []OrderCreatedItem `json:"items"`
}

type OrderCreatedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
