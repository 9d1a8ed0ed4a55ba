package cart

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"storefront-backend/internal/stores/postgres"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

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

func newTestConf(t *testing.T) (Conf, *sql.DB, int64) {
	t.Helper()
	db := openTestDB(t)
	conf, err := NewConf(db)
	if err != nil {
		t.Fatalf("NewConf failed: %v", err)
	}
	return conf, db, newTestUser(t, db)
}

func TestAddOrIncrementConcurrent(t *testing.T) {
	conf, _, userID := newTestConf(t)
	ctx := context.Background()

	const productID = 101
	const n = 50

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := conf.AddOrIncrement(ctx, userID, productID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddOrIncrement failed: %v", err)
	}

	cart, err := conf.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(cart.Items))
	}
	if got := cart.Items[0].Quantity; got != n {
		t.Fatalf("quantity = %d, want %d (lost updates)", got, n)
	}
}

func TestAddOrIncrementReturnsNewQuantity(t *testing.T) {
	conf, _, userID := newTestConf(t)
	ctx := context.Background()

	const productID = 102
	for want := 1; want <= 3; want++ {
		got, err := conf.AddOrIncrement(ctx, userID, productID)
		if err != nil {
			t.Fatalf("AddOrIncrement failed: %v", err)
		}
		if got != want {
			t.Fatalf("quantity = %d, want %d", got, want)
		}
	}
}

func TestSetQuantityOnAbsentItemIsNoOp(t *testing.T) {
	conf, _, userID := newTestConf(t)
	ctx := context.Background()

	updated, err := conf.SetQuantity(ctx, userID, 999, 5)
	if err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if updated {
		t.Fatal("expected no-op for absent item")
	}

	cart, err := conf.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d rows", len(cart.Items))
	}
}

func TestSetQuantityOverwritesExistingItem(t *testing.T) {
	conf, _, userID := newTestConf(t)
	ctx := context.Background()

	const productID = 103
	if _, err := conf.AddOrIncrement(ctx, userID, productID); err != nil {
		t.Fatalf("AddOrIncrement failed: %v", err)
	}

	updated, err := conf.SetQuantity(ctx, userID, productID, 7)
	if err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if !updated {
		t.Fatal("expected existing row to be updated")
	}

	cart, err := conf.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 7 {
		t.Fatalf("unexpected cart state: %+v", cart.Items)
	}
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	conf, _, userID := newTestConf(t)

	if _, err := conf.SetQuantity(context.Background(), userID, 104, -1); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestClearCartIsIdempotent(t *testing.T) {
	conf, _, userID := newTestConf(t)
	ctx := context.Background()

	for _, productID := range []int64{105, 106} {
		if _, err := conf.AddOrIncrement(ctx, userID, productID); err != nil {
			t.Fatalf("AddOrIncrement failed: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := conf.ClearCart(ctx, userID); err != nil {
			t.Fatalf("ClearCart call %d failed: %v", i+1, err)
		}
	}

	cart, err := conf.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d rows", len(cart.Items))
	}
}

func TestMutationsAreScopedToOneUser(t *testing.T) {
	conf, db, userID := newTestConf(t)
	otherID := newTestUser(t, db)
	ctx := context.Background()

	const productID = 107
	if _, err := conf.AddOrIncrement(ctx, userID, productID); err != nil {
		t.Fatalf("AddOrIncrement failed: %v", err)
	}
	if _, err := conf.AddOrIncrement(ctx, otherID, productID); err != nil {
		t.Fatalf("AddOrIncrement failed: %v", err)
	}

	if err := conf.ClearCart(ctx, userID); err != nil {
		t.Fatalf("ClearCart failed: %v", err)
	}

	otherCart, err := conf.GetCart(ctx, otherID)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(otherCart.Items) != 1 {
		t.Fatalf("other user's cart was touched: %+v", otherCart.Items)
	}
}
