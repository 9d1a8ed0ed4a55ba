package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusNew is the only status this service ever writes; orders are
// immutable once created.
const StatusNew = "NEW"

// Order is the immutable purchase record created by checkout.
type Order struct {
	OrderID   int64      `json:"order_id"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	Status    string     `json:"status"`
	Items     []LineItem `json:"items"`
}

// LineItem records one product's quantity and unit price at the moment of
// checkout. UnitPrice is a snapshot; later catalog price changes never
// touch it.
type LineItem struct {
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
