package enums

import "fmt"

// StoreConnectionStatus mirrors the status column maintained by the connect flow.
type StoreConnectionStatus string

const (
	StoreConnectionActive       StoreConnectionStatus = "active"
	StoreConnectionDisconnected StoreConnectionStatus = "disconnected"
	StoreConnectionPending      StoreConnectionStatus = "pending"
)

var validStoreConnectionStatuses = []StoreConnectionStatus{
	StoreConnectionActive,
	StoreConnectionDisconnected,
	StoreConnectionPending,
}

// String implements fmt.Stringer.
func (s StoreConnectionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreConnectionStatus.
func (s StoreConnectionStatus) IsValid() bool {
	for _, candidate := range validStoreConnectionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreConnectionStatus converts raw input into a StoreConnectionStatus.
func ParseStoreConnectionStatus(value string) (StoreConnectionStatus, error) {
	for _, candidate := range validStoreConnectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store connection status %q", value)
}
