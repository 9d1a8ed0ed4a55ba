package products

import "github.com/shopspring/decimal"

type Product struct {
	ProductID   int64           `json:"product_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
	Description string          `json:"description"`
	SubCategory string          `json:"sub_category"`
	ImageURL    string          `json:"image_url"`
}

// NewProduct is the payload for creating or updating a product.
type NewProduct struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Description string          `json:"description"`
	SubCategory string          `json:"sub_category"`
	ImageURL    string          `json:"image_url"`
}

// SearchFilter holds the optional query filters; nil/empty fields are
// ignored.
type SearchFilter struct {
	CategoryID  *int64
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	SubCategory string
}
