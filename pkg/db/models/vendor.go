package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor is the tenant row; WalletBalance is only ever written by the wallet ledger engine.
type Vendor struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string          `gorm:"column:name;type:varchar(255);not null"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(14,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
