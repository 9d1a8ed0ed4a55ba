package cart

// Item is one product row in a user's cart.
type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart is the full working set for one user. Empty is a valid state; a cart
// is never deleted, only emptied.
type Cart struct {
	UserID int64  `json:"user_id"`
	Items  []Item `json:"items"`
}
