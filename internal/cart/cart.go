// Package cart owns the per-user shopping cart rows and their race-safe
// mutation. All mutations for one user are serialized through a Postgres
// transaction advisory lock keyed by the user id, which is the same lock the
// checkout transaction takes, so a mutation never interleaves with an
// in-flight checkout. Different users never contend.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// GetCart returns a snapshot of the user's cart. The snapshot is taken in a
// single statement, so it can never observe a half-cleared cart.
func (c *Conf) GetCart(ctx context.Context, userID int64) (Cart, error) {
	const query = `
		SELECT product_id, quantity
		FROM shopping_cart
		WHERE user_id = $1
		ORDER BY product_id
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return Cart{}, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	cart := Cart{UserID: userID, Items: []Item{}}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return Cart{}, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, fmt.Errorf("error iterating cart items: %w", err)
	}
	return cart, nil
}

// AddOrIncrement inserts the product with quantity 1, or bumps the existing
// quantity by 1, as one atomic upsert. Two concurrent calls can never both
// read quantity N and both write N+1. Returns the new quantity.
func (c *Conf) AddOrIncrement(ctx context.Context, userID, productID int64) (int, error) {
	var quantity int
	err := c.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO shopping_cart (user_id, product_id, quantity)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = shopping_cart.quantity + 1
			RETURNING quantity
		`
		if err := tx.QueryRowContext(ctx, query, userID, productID).Scan(&quantity); err != nil {
			return fmt.Errorf("failed to upsert cart item: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// SetQuantity overwrites the quantity of an existing cart row. When the
// product is not in the cart this is a no-op: no row is created and no error
// is raised. Returns whether a row was updated.
func (c *Conf) SetQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error) {
	if quantity < 0 {
		return false, fmt.Errorf("quantity must not be negative: %d", quantity)
	}
	var updated bool
	err := c.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		const query = `
			UPDATE shopping_cart
			SET quantity = $1
			WHERE user_id = $2 AND product_id = $3
		`
		res, err := tx.ExecContext(ctx, query, quantity, userID, productID)
		if err != nil {
			return fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		updated = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// ClearCart removes every row for the user. Idempotent.
func (c *Conf) ClearCart(ctx context.Context, userID int64) error {
	return c.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		return ClearTx(ctx, tx, userID)
	})
}

// LockUser takes the per-user advisory lock inside tx. Every cart mutation
// and the checkout transaction take this lock first, so they serialize with
// each other for the same user while different users run in parallel. The
// lock is released on commit or rollback, including when the session dies.
func LockUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("failed to acquire cart lock for user %d: %w", userID, err)
	}
	return nil
}

// ItemsTx reads the user's cart rows inside an existing transaction.
func ItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]Item, error) {
	const query = `
		SELECT product_id, quantity
		FROM shopping_cart
		WHERE user_id = $1
		ORDER BY product_id
	`
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

// ClearTx removes the user's cart rows inside an existing transaction.
func ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// withUserTx runs fn inside a transaction that holds the advisory lock for
// the given user.
func (c *Conf) withUserTx(ctx context.Context, userID int64, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := LockUser(ctx, tx, userID); err != nil {
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
