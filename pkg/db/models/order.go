package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

// Order is the persisted record of a storefront order, keyed by (vendor_id, external_order_id).
// VendorID 0 means the originating store could not be resolved.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	VendorID              int64             `gorm:"column:vendor_id;not null;default:0;uniqueIndex:ux_orders_vendor_external,priority:1"`
	ExternalOrderID       string            `gorm:"column:external_order_id;type:varchar(64);not null;uniqueIndex:ux_orders_vendor_external,priority:2"`
	StoreURL              *string           `gorm:"column:store_url;type:varchar(512)"`
	Platform              enums.Platform    `gorm:"column:platform;type:varchar(32);not null;default:'unknown'"`
	Topic                 string            `gorm:"column:topic;type:varchar(64);not null;default:''"`
	ExternalStatus        string            `gorm:"column:external_status;type:varchar(64);not null;default:''"`
	Status                enums.OrderStatus `gorm:"column:status;type:varchar(32);not null;default:'pending'"`
	NeedsVendorAssignment bool              `gorm:"column:needs_vendor_assignment;not null;default:false"`
	Currency              string            `gorm:"column:currency;type:varchar(8);not null;default:''"`
	Subtotal              decimal.Decimal   `gorm:"column:subtotal;type:numeric(14,2);not null;default:0"`
	DiscountTotal         decimal.Decimal   `gorm:"column:discount_total;type:numeric(14,2);not null;default:0"`
	ShippingTotal         decimal.Decimal   `gorm:"column:shipping_total;type:numeric(14,2);not null;default:0"`
	TotalTax              decimal.Decimal   `gorm:"column:total_tax;type:numeric(14,2);not null;default:0"`
	Total                 decimal.Decimal   `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	TotalCost             decimal.Decimal   `gorm:"column:total_cost;type:numeric(14,2);not null;default:0"`
	Billing               *types.Contact    `gorm:"column:billing;type:jsonb;serializer:json"`
	Shipping              *types.Contact    `gorm:"column:shipping;type:jsonb;serializer:json"`
	LineItemsSnapshot     json.RawMessage   `gorm:"column:line_items_snapshot;type:jsonb"`
	WebhookReceived       bool              `gorm:"column:webhook_received;not null;default:false"`
	LedgerApplied         bool              `gorm:"column:ledger_applied;not null;default:false"`
	ExternalCreatedAt     *time.Time        `gorm:"column:external_created_at"`
	Items                 []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
