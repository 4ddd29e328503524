package models

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderDelivered, false},
		{OrderConfirmed, OrderShipped, true},
		{OrderConfirmed, OrderDelivered, false},
		{OrderShipped, OrderOutForDelivery, true},
		{OrderShipped, OrderDelivered, true},
		{OrderOutForDelivery, OrderDelivered, true},
		{OrderDelivered, OrderReturned, true},
		{OrderDelivered, OrderShipped, false},
		{OrderCancelled, OrderPending, false},
		{OrderReturned, OrderDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []OrderStatus{OrderDelivered, OrderCancelled, OrderReturned} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderOutForDelivery} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCanCancel(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderOutForDelivery} {
		if !s.CanCancel() {
			t.Errorf("%s should be cancellable", s)
		}
	}
	for _, s := range []OrderStatus{OrderDelivered, OrderCancelled, OrderReturned} {
		if s.CanCancel() {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	if !ValidOrderStatus("SHIPPED") {
		t.Error("SHIPPED should be valid")
	}
	if ValidOrderStatus("shipped") {
		t.Error("status strings are case sensitive")
	}
	if ValidOrderStatus("TELEPORTED") {
		t.Error("unknown status accepted")
	}
}
