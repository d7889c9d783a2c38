package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletLedgerEntry is the immutable record of one wallet debit. At most one
// exists per order; its presence marks the ledger as applied.
type WalletLedgerEntry struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID         int64           `gorm:"column:vendor_id;not null;index"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_wallet_ledger_order"`
	AmountDebited    decimal.Decimal `gorm:"column:amount_debited;type:numeric(14,2);not null"`
	ResultingBalance decimal.Decimal `gorm:"column:resulting_balance;type:numeric(14,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (WalletLedgerEntry) TableName() string {
	return "wallet_ledger"
}
