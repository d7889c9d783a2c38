package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the internal lifecycle of an ingested storefront order.
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusProcessing            OrderStatus = "processing"
	OrderStatusOnhold                OrderStatus = "onhold"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusNeedsVendorAssignment OrderStatus = "needs_vendor_assignment"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusOnhold,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusNeedsVendorAssignment,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the sender has closed the order.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatusFromExternal maps a storefront status string onto the internal
// lifecycle. Unknown, refund, failure and the sender's own on-hold state
// collapse to pending; onhold is reserved for wallet shortfalls.
func OrderStatusFromExternal(value string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "processing", "paid":
		return OrderStatusProcessing
	case "completed", "fulfilled":
		return OrderStatusCompleted
	case "cancelled", "canceled", "voided":
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}
