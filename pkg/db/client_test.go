package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+uuid.NewString()+"?mode=memory&cache=shared"), gormConfig())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestPing(t *testing.T) {
	client := Wrap(newTestDB(t))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	if err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestNewSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		DSN:    "file:dbnew_" + uuid.NewString() + "?mode=memory&cache=shared",
		Driver: DriverSQLite,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestStockShortageErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("adjust: %w", &StockShortageError{ProductID: uuid.New(), Available: 2, Requested: 3})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected shortage to match ErrInsufficientStock")
	}
	var shortage *StockShortageError
	if !errors.As(err, &shortage) || shortage.Available != 2 {
		t.Fatalf("expected shortage details, got %+v", shortage)
	}
}

func TestViolationHelpersOnSQLiteMessages(t *testing.T) {
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: orders.order_number"), "") {
		t.Fatal("expected sqlite unique failure to be detected")
	}
	if !IsCheckViolation(errors.New("CHECK constraint failed: products_stock_non_negative"), "products_stock_non_negative") {
		t.Fatal("expected sqlite check failure to be detected")
	}
	if IsUniqueViolation(errors.New("UNIQUE constraint failed: users.email"), "orders.order_number") {
		t.Fatal("expected other constraint not to match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is never a violation")
	}
}
