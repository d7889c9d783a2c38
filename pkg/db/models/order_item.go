package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// OrderItem is one purchased variant of an order with its resolved vendor unit cost.
type OrderItem struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ExternalItemID      string                `gorm:"column:external_item_id;type:varchar(64);not null;default:''"`
	ExternalProductID   string                `gorm:"column:external_product_id;type:varchar(64);not null;default:''"`
	ExternalVariationID string                `gorm:"column:external_variation_id;type:varchar(64);not null;default:''"`
	CatalogProductID    *int64                `gorm:"column:catalog_product_id"`
	Name                string                `gorm:"column:name;type:varchar(512);not null;default:''"`
	SKU                 string                `gorm:"column:sku;type:varchar(255);not null;default:''"`
	Quantity            int                   `gorm:"column:quantity;not null"`
	SalePrice           decimal.Decimal       `gorm:"column:sale_price;type:numeric(14,2);not null;default:0"`
	LineTotal           decimal.Decimal       `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	UnitPrice           decimal.Decimal       `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	SizeLabel           *string               `gorm:"column:size_label;type:varchar(32)"`
	PriceResolution     enums.PriceResolution `gorm:"column:price_resolution;type:varchar(32);not null"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Cost is the vendor liability this item contributes; unresolved items contribute zero.
func (i OrderItem) Cost() decimal.Decimal {
	if !i.PriceResolution.Resolved() || i.Quantity <= 0 {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
