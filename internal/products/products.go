// Package products owns the product catalog. It also serves as the price
// oracle for checkout via PriceOf.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

const productColumns = `product_id, name, price, COALESCE(category_id, 0), description, sub_category, image_url`

// ListProducts returns products matching the filter, applying only the
// filters that are set.
func (c *Conf) ListProducts(ctx context.Context, filter SearchFilter) ([]Product, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + productColumns + ` FROM products WHERE 1=1`)

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.CategoryID != nil {
		sb.WriteString(` AND category_id = ` + arg(*filter.CategoryID))
	}
	if filter.MinPrice != nil {
		sb.WriteString(` AND price >= ` + arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		sb.WriteString(` AND price <= ` + arg(*filter.MaxPrice))
	}
	if filter.SubCategory != "" {
		sb.WriteString(` AND sub_category = ` + arg(filter.SubCategory))
	}
	sb.WriteString(` ORDER BY product_id`)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ListByCategory returns every product in one category.
func (c *Conf) ListByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 ORDER BY product_id`
	rows, err := c.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by category: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetProduct fetches one product by id, or ErrNotFound.
func (c *Conf) GetProduct(ctx context.Context, productID int64) (Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`
	var p Product
	err := c.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ProductID, &p.Name, &p.Price, &p.CategoryID, &p.Description, &p.SubCategory, &p.ImageURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// PriceOf resolves the current catalog price for checkout. exists is false
// when the product is gone from the catalog.
func (c *Conf) PriceOf(ctx context.Context, productID int64) (decimal.Decimal, bool, error) {
	const query = `SELECT price FROM products WHERE product_id = $1`
	var price decimal.Decimal
	err := c.db.QueryRowContext(ctx, query, productID).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Decimal{}, false, nil
		}
		return decimal.Decimal{}, false, fmt.Errorf("failed to query product price: %w", err)
	}
	return price, true, nil
}

// CreateProduct inserts a product and returns it with its assigned id.
func (c *Conf) CreateProduct(ctx context.Context, np NewProduct) (Product, error) {
	const query = `
		INSERT INTO products (name, price, category_id, description, sub_category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING product_id
	`
	p := Product{
		Name:        np.Name,
		Price:       np.Price,
		CategoryID:  np.CategoryID,
		Description: np.Description,
		SubCategory: np.SubCategory,
		ImageURL:    np.ImageURL,
	}
	err := c.db.QueryRowContext(ctx, query,
		np.Name, np.Price, np.CategoryID, np.Description, np.SubCategory, np.ImageURL,
	).Scan(&p.ProductID)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

// UpdateProduct overwrites a product's fields; ErrNotFound when the id does
// not exist.
func (c *Conf) UpdateProduct(ctx context.Context, productID int64, np NewProduct) error {
	const query = `
		UPDATE products
		SET name = $1, price = $2, category_id = $3, description = $4, sub_category = $5, image_url = $6
		WHERE product_id = $7
	`
	res, err := c.db.ExecContext(ctx, query,
		np.Name, np.Price, np.CategoryID, np.Description, np.SubCategory, np.ImageURL, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product from the catalog; ErrNotFound when the id
// does not exist. Cart rows referencing it are left alone and surface as
// unavailable at checkout.
func (c *Conf) DeleteProduct(ctx context.Context, productID int64) error {
	const query = `DELETE FROM products WHERE product_id = $1`
	res, err := c.db.ExecContext(ctx, query, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.CategoryID, &p.Description, &p.SubCategory, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}
