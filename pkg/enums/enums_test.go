package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]OrderStatus{
		"pending":    OrderStatusPending,
		"Processing": OrderStatusProcessing,
		" shipped ":  OrderStatusShipped,
		"COMPLETED":  OrderStatusCompleted,
		"cancelled":  OrderStatusCancelled,
	}
	for input, want := range cases {
		got, err := ParseOrderStatus(input)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) unexpected error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseOrderStatus(%q) = %s, want %s", input, got, want)
		}
	}

	for _, bad := range []string{"", "refunded", "canceled"} {
		if _, err := ParseOrderStatus(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusPending:    false,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusCompleted:  true,
		OrderStatusCancelled:  true,
	}
	for status, want := range terminal {
		if status.IsTerminal() != want {
			t.Fatalf("%s terminal = %v, want %v", status, status.IsTerminal(), want)
		}
	}
}

func TestOrderStatusesReturnsCopy(t *testing.T) {
	statuses := OrderStatuses()
	if len(statuses) != 5 {
		t.Fatalf("expected 5 statuses, got %d", len(statuses))
	}
	statuses[0] = "mutated"
	if OrderStatuses()[0] != OrderStatusPending {
		t.Fatal("mutating the result must not affect the canonical list")
	}
}

func TestStockDirection(t *testing.T) {
	if StockIncrease.Sign() != 1 || StockDecrease.Sign() != -1 || StockDirection("sideways").Sign() != 0 {
		t.Fatal("unexpected direction signs")
	}
	if _, err := ParseStockDirection("Decrease"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStockDirection("up"); err == nil {
		t.Fatal("expected invalid direction error")
	}
}

func TestStockLevelLabel(t *testing.T) {
	if StockLevelLowStock.Label() != "Low Stock" {
		t.Fatalf("unexpected label %q", StockLevelLowStock.Label())
	}
	if StockLevel("other").Label() != "" {
		t.Fatal("unknown level should have an empty label")
	}
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("Admin")
	if err != nil || role != UserRoleAdmin {
		t.Fatalf("expected admin, got %s (%v)", role, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected invalid role error")
	}
}
