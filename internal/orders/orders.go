// Package orders converts a user's cart into an immutable order. The whole
// checkout - order header, line items, cart clear - runs in one transaction
// holding the per-user cart lock, so it is all-or-nothing and never
// interleaves with cart mutations for the same user.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-backend/internal/cart"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotAuthenticated means no valid user id reached the processor.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrEmptyCart means the cart had no items with a positive quantity.
	ErrEmptyCart = errors.New("shopping cart is empty")
	// ErrProductUnavailable means a cart row references a product that no
	// longer resolves in the catalog.
	ErrProductUnavailable = errors.New("product unavailable")
)

// ProductPricer resolves the current catalog price of a product. The
// returned price is frozen into the order's line items.
type ProductPricer interface {
	PriceOf(ctx context.Context, productID int64) (price decimal.Decimal, exists bool, err error)
}

type Conf struct {
	db     *sql.DB
	pricer ProductPricer
}

func NewConf(db *sql.DB, pricer ProductPricer) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	if pricer == nil {
		return Conf{}, fmt.Errorf("pricer is nil")
	}
	return Conf{db: db, pricer: pricer}, nil
}

// Checkout reads the user's cart, writes an order with one line item per
// positive-quantity cart row at current catalog prices, and clears the cart.
// On any failure after the empty-cart check the transaction rolls back: no
// order, no line items, and the cart is untouched.
func (c *Conf) Checkout(ctx context.Context, userID int64) (Order, error) {
	if userID <= 0 {
		return Order{}, ErrNotAuthenticated
	}

	var order Order
	err := c.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		items, err := cart.ItemsTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		// Rows with a non-positive quantity are stale cart state, not an
		// error: skip them. A cart holding only such rows is empty.
		eligible := make([]cart.Item, 0, len(items))
		for _, item := range items {
			if item.Quantity > 0 {
				eligible = append(eligible, item)
			}
		}
		if len(eligible) == 0 {
			return ErrEmptyCart
		}

		const insertOrder = `
			INSERT INTO orders (user_id, status)
			VALUES ($1, $2)
			RETURNING order_id, created_at
		`
		order = Order{UserID: userID, Status: StatusNew}
		if err := tx.QueryRowContext(ctx, insertOrder, userID, StatusNew).Scan(&order.OrderID, &order.CreatedAt); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range eligible {
			price, exists, err := c.pricer.PriceOf(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("failed to resolve price for product %d: %w", item.ProductID, err)
			}
			if !exists {
				return fmt.Errorf("product %d: %w", item.ProductID, ErrProductUnavailable)
			}

			const insertLineItem = `
				INSERT INTO order_line_items (order_id, product_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4)
			`
			if _, err := tx.ExecContext(ctx, insertLineItem, order.OrderID, item.ProductID, item.Quantity, price); err != nil {
				return fmt.Errorf("failed to create line item for product %d: %w", item.ProductID, err)
			}

			order.Items = append(order.Items, LineItem{
				OrderID:   order.OrderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: price,
			})
		}

		return cart.ClearTx(ctx, tx, userID)
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Conf) withUserTx(ctx context.Context, userID int64, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := cart.LockUser(ctx, tx, userID); err != nil {
		tx.Rollback()
		return err
	}

	if err := fn(tx); err != nil {
		if er := tx.Rollback(); er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback tx: %w", er)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}
