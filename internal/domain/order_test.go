package domain

import "testing"

func TestDeriveOrderStatusPrecedence(t *testing.T) {
	cases := []struct {
		paid, delivered, cancelled bool
		want                       OrderStatus
	}{
		{false, false, false, OrderStatusPending},
		{true, false, false, OrderStatusPaid},
		{false, true, false, OrderStatusDelivered},
		{true, true, false, OrderStatusDelivered},
		{false, false, true, OrderStatusCancelled},
		{true, false, true, OrderStatusCancelled},
		{false, true, true, OrderStatusCancelled},
		{true, true, true, OrderStatusCancelled},
	}

	for _, tc := range cases {
		got := DeriveOrderStatus(tc.paid, tc.delivered, tc.cancelled)
		if got != tc.want {
			t.Fatalf("paid=%v delivered=%v cancelled=%v: expected %q, got %q", tc.paid, tc.delivered, tc.cancelled, tc.want, got)
		}
	}
}

func TestOrderStatusUsesFacets(t *testing.T) {
	order := Order{
		Payment:      PaymentFacet{Paid: true},
		Cancellation: CancellationFacet{Cancelled: true},
	}
	if order.Status() != OrderStatusCancelled {
		t.Fatalf("expected paid and cancelled order to display as cancelled, got %q", order.Status())
	}
}
