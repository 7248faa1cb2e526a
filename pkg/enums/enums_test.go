package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, value := range []string{"draft", "reserved", "delivered", "closed", "canceled"} {
		status, err := ParseOrderStatus(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if status.String() != value {
			t.Fatalf("expected %q got %q", value, status)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if _, err := ParseOrderStatus("DRAFT"); err == nil {
		t.Fatal("expected parsing to be case sensitive")
	}
}

func TestOrderStatusHelpers(t *testing.T) {
	if OrderStatusDraft.AcceptsPayments() || OrderStatusCanceled.AcceptsPayments() {
		t.Fatal("draft and canceled orders must not accept payments")
	}
	if !OrderStatusReserved.AcceptsPayments() || !OrderStatusClosed.AcceptsPayments() {
		t.Fatal("reserved and closed orders accept payments")
	}
	if !OrderStatusClosed.IsTerminal() || OrderStatusDelivered.IsTerminal() {
		t.Fatal("only closed is terminal")
	}
}

func TestRoleIsBackOffice(t *testing.T) {
	tests := map[Role]bool{
		RoleAdmin:  true,
		RoleStaff:  true,
		RoleClient: false,
		Role("x"):  false,
	}
	for role, want := range tests {
		if got := role.IsBackOffice(); got != want {
			t.Fatalf("role %q: expected %v got %v", role, want, got)
		}
	}
}

func TestAlertStatusIsActive(t *testing.T) {
	if !AlertStatusOpen.IsActive() || !AlertStatusAcknowledged.IsActive() {
		t.Fatal("open and acknowledged alerts are active")
	}
	if AlertStatusResolved.IsActive() {
		t.Fatal("resolved alerts are inactive")
	}
}

func TestIsValidRejectsUnknown(t *testing.T) {
	if DealStatus("paused").IsValid() {
		t.Fatal("unexpected deal status accepted")
	}
	if !DealStatusSoldOut.IsValid() {
		t.Fatal("sold_out should be valid")
	}
	if PaymentMethod("crypto").IsValid() {
		t.Fatal("unexpected payment method accepted")
	}
	if _, err := ParseOutboxEventType("order_status_changed"); err != nil {
		t.Fatalf("parse event type: %v", err)
	}
	if _, err := ParseOutboxAggregateType("vendor_order"); err == nil {
		t.Fatal("expected unknown aggregate to fail")
	}
}
