package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	"storefront-backend/internal/cart"
	"storefront-backend/internal/products"
	"storefront-backend/internal/stores/postgres"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type fakePricer struct {
	prices map[int64]decimal.Decimal
}

func (f *fakePricer) PriceOf(_ context.Context, productID int64) (decimal.Decimal, bool, error) {
	price, ok := f.prices[productID]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	return price, true, nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("APP_DB_HOST") == "" {
		t.Skip("APP_DB_HOST not set, skipping database tests")
	}
	db, err := postgres.OpenDB()
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := postgres.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var userID int64
	email := fmt.Sprintf("%s@example.com", uuid.NewString())
	err := db.QueryRow(
		`INSERT INTO users (email, password_hash) VALUES ($1, 'x') RETURNING user_id`, email,
	).Scan(&userID)
	if err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
	return userID
}

func addCartRow(t *testing.T, db *sql.DB, userID, productID int64, quantity int) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO shopping_cart (user_id, product_id, quantity) VALUES ($1, $2, $3)`,
		userID, productID, quantity,
	)
	if err != nil {
		t.Fatalf("failed to insert cart row: %v", err)
	}
}

func cartRowCount(t *testing.T, db *sql.DB, userID int64) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM shopping_cart WHERE user_id = $1`, userID).Scan(&n); err != nil {
		t.Fatalf("failed to count cart rows: %v", err)
	}
	return n
}

func orderCount(t *testing.T, db *sql.DB, userID int64) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}

func TestCheckoutRejectsInvalidUser(t *testing.T) {
	db := openTestDB(t)
	conf, err := NewConf(db, &fakePricer{})
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	for _, userID := range []int64{0, -5} {
		if _, err := conf.Checkout(context.Background(), userID); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("Checkout(%d) error = %v, want ErrNotAuthenticated", userID, err)
		}
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)
	conf, err := NewConf(db, &fakePricer{})
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	if _, err := conf.Checkout(context.Background(), userID); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("Checkout error = %v, want ErrEmptyCart", err)
	}
	if n := orderCount(t, db, userID); n != 0 {
		t.Fatalf("expected no orders, found %d", n)
	}
}

func TestCheckoutSkipsNonPositiveQuantities(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)
	pricer := &fakePricer{prices: map[int64]decimal.Decimal{
		201: decimal.RequireFromString("10.00"),
	}}
	conf, err := NewConf(db, pricer)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	// A cart holding only zero-quantity rows counts as empty.
	addCartRow(t, db, userID, 201, 0)
	if _, err := conf.Checkout(context.Background(), userID); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("Checkout error = %v, want ErrEmptyCart", err)
	}
	if n := orderCount(t, db, userID); n != 0 {
		t.Fatalf("expected no orders, found %d", n)
	}

	// A zero-quantity row alongside a real one is silently skipped.
	addCartRow(t, db, userID, 202, 3)
	pricer.prices[202] = decimal.RequireFromString("2.50")

	order, err := conf.Checkout(context.Background(), userID)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != 202 {
		t.Fatalf("unexpected line items: %+v", order.Items)
	}
}

func TestCheckoutSnapshotsPrices(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)

	var productA, productB int64
	if err := db.QueryRow(
		`INSERT INTO products (name, price) VALUES ('widget', 10.00) RETURNING product_id`,
	).Scan(&productA); err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	if err := db.QueryRow(
		`INSERT INTO products (name, price) VALUES ('gadget', 5.00) RETURNING product_id`,
	).Scan(&productB); err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}

	addCartRow(t, db, userID, productA, 2)
	addCartRow(t, db, userID, productB, 1)

	productsConf, err := products.NewConf(db)
	if err != nil {
		t.Fatalf("products.NewConf failed: %v", err)
	}
	conf, err := NewConf(db, &productsConf)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	order, err := conf.Checkout(context.Background(), userID)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if order.OrderID == 0 {
		t.Fatal("expected assigned order id")
	}
	if order.Status != StatusNew {
		t.Fatalf("status = %q, want %q", order.Status, StatusNew)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(order.Items))
	}

	// The catalog price changes after checkout; the persisted snapshot
	// must not.
	if _, err := db.Exec(`UPDATE products SET price = 99.99 WHERE product_id = $1`, productA); err != nil {
		t.Fatalf("failed to update product price: %v", err)
	}

	var persisted string
	err = db.QueryRow(
		`SELECT unit_price FROM order_line_items WHERE order_id = $1 AND product_id = $2`,
		order.OrderID, productA,
	).Scan(&persisted)
	if err != nil {
		t.Fatalf("failed to read line item: %v", err)
	}
	got := decimal.RequireFromString(persisted)
	if !got.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unit_price = %s, want 10.00", got)
	}
}

func TestCheckoutClearsCartOnSuccess(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)
	pricer := &fakePricer{prices: map[int64]decimal.Decimal{
		301: decimal.RequireFromString("1.00"),
	}}
	conf, err := NewConf(db, pricer)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	addCartRow(t, db, userID, 301, 4)
	if _, err := conf.Checkout(context.Background(), userID); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if n := cartRowCount(t, db, userID); n != 0 {
		t.Fatalf("expected cleared cart, found %d rows", n)
	}

	// A retry on the now-empty cart reports EmptyCart instead of
	// duplicating the order.
	if _, err := conf.Checkout(context.Background(), userID); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("retry error = %v, want ErrEmptyCart", err)
	}
	if n := orderCount(t, db, userID); n != 1 {
		t.Fatalf("expected exactly 1 order, found %d", n)
	}
}

func TestCheckoutRollsBackOnUnavailableProduct(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)
	pricer := &fakePricer{prices: map[int64]decimal.Decimal{
		401: decimal.RequireFromString("3.00"),
		// 402 is missing from the catalog.
	}}
	conf, err := NewConf(db, pricer)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}

	addCartRow(t, db, userID, 401, 1)
	addCartRow(t, db, userID, 402, 2)

	if _, err := conf.Checkout(context.Background(), userID); !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("Checkout error = %v, want ErrProductUnavailable", err)
	}

	// Nothing committed: no order, no line items, cart untouched.
	if n := orderCount(t, db, userID); n != 0 {
		t.Fatalf("expected no orders after rollback, found %d", n)
	}
	if n := cartRowCount(t, db, userID); n != 2 {
		t.Fatalf("expected cart to survive rollback, found %d rows", n)
	}

	// Fixing the catalog makes the same cart checkout-able again.
	pricer.prices[402] = decimal.RequireFromString("8.00")
	order, err := conf.Checkout(context.Background(), userID)
	if err != nil {
		t.Fatalf("Checkout after fix failed: %v", err)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(order.Items))
	}
}

func TestCheckoutSerializesWithCartMutations(t *testing.T) {
	db := openTestDB(t)
	userID := newTestUser(t, db)
	pricer := &fakePricer{prices: map[int64]decimal.Decimal{
		501: decimal.RequireFromString("1.00"),
		502: decimal.RequireFromString("2.00"),
	}}
	conf, err := NewConf(db, pricer)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		t.Fatalf("cart.NewConf failed: %v", err)
	}

	addCartRow(t, db, userID, 501, 2)

	ctx := context.Background()
	var order Order

	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		order, err = conf.Checkout(ctx, userID)
		return err
	})
	g.Go(func() error {
		_, err := cartConf.AddOrIncrement(ctx, userID, 502)
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent checkout/mutation failed: %v", err)
	}

	inOrder := false
	for _, item := range order.Items {
		if item.ProductID == 502 {
			inOrder = true
			if item.Quantity != 1 {
				t.Fatalf("line item quantity = %d, want 1", item.Quantity)
			}
		}
	}

	after, err := cartConf.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	inCart := false
	for _, item := range after.Items {
		if item.ProductID == 502 {
			inCart = true
			if item.Quantity != 1 {
				t.Fatalf("cart quantity = %d, want 1", item.Quantity)
			}
		}
	}

	// The concurrent add either made it into the order or survives in the
	// cart, never both and never neither.
	if inOrder == inCart {
		t.Fatalf("inOrder = %v, inCart = %v: mutation was lost or double-counted", inOrder, inCart)
	}
}
