package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// Refs names the vendor and order an event concerns. Zero values mean unknown.
type Refs struct {
	VendorID int64
	OrderID  uuid.UUID
}

// Referencer is implemented by every payload so consumers can route without decoding data.
type Referencer interface {
	Refs() Refs
}

// WalletDebitedEvent is emitted when an order's cost was taken from the vendor wallet.
type WalletDebitedEvent struct {
	VendorID         int64           `json:"vendor_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	ExternalOrderID  string          `json:"external_order_id"`
	LedgerEntryID    uuid.UUID       `json:"ledger_entry_id"`
	AmountDebited    decimal.Decimal `json:"amount_debited"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
}

// OrderOnholdEvent is emitted when the wallet could not cover an order.
type OrderOnholdEvent struct {
	VendorID        int64           `json:"vendor_id"`
	OrderID         uuid.UUID       `json:"order_id"`
	ExternalOrderID string          `json:"external_order_id"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	Balance         decimal.Decimal `json:"balance"`
	Shortfall       decimal.Decimal `json:"shortfall"`
}

// WalletMissingEvent asks an operator to provision a wallet for a vendor that received an order.
type WalletMissingEvent struct {
	VendorID        int64     `json:"vendor_id"`
	OrderID         uuid.UUID `json:"order_id"`
	ExternalOrderID string    `json:"external_order_id"`
}

// OrderVendorUnresolvedEvent asks an operator to assign a vendor to an orphaned order.
type OrderVendorUnresolvedEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	ExternalOrderID string            `json:"external_order_id"`
	StoreURL        string            `json:"store_url,omitempty"`
	Status          enums.OrderStatus `json:"status"`
}

func (e *WalletDebitedEvent) Refs() Refs { return Refs{VendorID: e.VendorID, OrderID: e.OrderID} }

func (e *OrderOnholdEvent) Refs() Refs { return Refs{VendorID: e.VendorID, OrderID: e.OrderID} }

func (e *WalletMissingEvent) Refs() Refs { return Refs{VendorID: e.VendorID, OrderID: e.OrderID} }

func (e *OrderVendorUnresolvedEvent) Refs() Refs { return Refs{OrderID: e.OrderID} }
