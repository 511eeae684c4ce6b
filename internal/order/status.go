package order

import (
	"github.com/zestcart/zestcart/internal/domain"
)

// transitions is the full order status machine. Delivered and cancelled
// are terminal, every live status may move to cancelled.
var transitions = map[string][]string{
	domain.OrderPending:   {domain.OrderConfirmed, domain.OrderCancelled},
	domain.OrderConfirmed: {domain.OrderShipped, domain.OrderCancelled},
	domain.OrderShipped:   {domain.OrderDelivered, domain.OrderCancelled},
	domain.OrderDelivered: {},
	domain.OrderCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &domain.TransitionError{From: from, To: to}
	}
	return nil
}
