package orders

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/internal/catalog"
	"github.com/angelmondragon/printbridge-backend/internal/vendors"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

// PricedItem pairs a sender line item with its catalog price resolution.
type PricedItem struct {
	Item  types.LineItem
	Price catalog.Resolution
}

// UpsertInput is everything the store needs to record one delivery.
type UpsertInput struct {
	Event    *types.OrderEvent
	Vendor   vendors.Resolution
	Items    []PricedItem
	Topic    string
	Platform enums.Platform
}

// UpsertResult reports the persisted row and whether its items were replaced.
type UpsertResult struct {
	Order         *models.Order
	ItemsReplaced bool
}

// TotalCost sums the vendor liability of the priced items.
func TotalCost(items []PricedItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Cost(it.Item.Quantity))
	}
	return total
}

// InitialStatus is the internal status a delivery proposes. Unresolved orders
// always wait for vendor assignment.
func InitialStatus(vendor vendors.Resolution, externalStatus string) enums.OrderStatus {
	if !vendor.Resolved || vendor.VendorID <= 0 {
		return enums.OrderStatusNeedsVendorAssignment
	}
	return enums.OrderStatusFromExternal(externalStatus)
}

func buildOrder(in UpsertInput) (*models.Order, error) {
	event := in.Event
	snapshot, err := json.Marshal(event.LineItems)
	if err != nil {
		return nil, err
	}

	vendorID := int64(0)
	if in.Vendor.Resolved {
		vendorID = in.Vendor.VendorID
	}

	var storeURL *string
	if in.Vendor.StoreURL != "" {
		u := in.Vendor.StoreURL
		storeURL = &u
	}

	platform := in.Platform
	if platform == "" {
		platform = enums.PlatformUnknown
	}

	order := &models.Order{
		ID:                    uuid.New(),
		VendorID:              vendorID,
		ExternalOrderID:       event.ID.String(),
		StoreURL:              storeURL,
		Platform:              platform,
		Topic:                 in.Topic,
		ExternalStatus:        event.Status,
		Status:                InitialStatus(in.Vendor, event.Status),
		NeedsVendorAssignment: vendorID == 0,
		Currency:              event.Currency,
		Subtotal:              event.Subtotal.Decimal,
		DiscountTotal:         event.DiscountTotal.Decimal,
		ShippingTotal:         event.ShippingTotal.Decimal,
		TotalTax:              event.TotalTax.Decimal,
		Total:                 event.Total.Decimal,
		TotalCost:             TotalCost(in.Items),
		LineItemsSnapshot:     json.RawMessage(snapshot),
		WebhookReceived:       true,
		ExternalCreatedAt:     event.CreatedAtTime(),
	}
	if event.Billing != nil && !event.Billing.IsZero() {
		order.Billing = event.Billing
	}
	if event.Shipping != nil && !event.Shipping.IsZero() {
		order.Shipping = event.Shipping
	}
	return order, nil
}

func buildItems(orderID uuid.UUID, items []PricedItem) []models.OrderItem {
	rows := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		var sizeLabel *string
		if it.Price.SizeLabel != "" {
			label := it.Price.SizeLabel
			sizeLabel = &label
		}
		rows = append(rows, models.OrderItem{
			ID:                  uuid.New(),
			OrderID:             orderID,
			ExternalItemID:      it.Item.ID.String(),
			ExternalProductID:   it.Item.ProductID.String(),
			ExternalVariationID: it.Item.VariationID.String(),
			CatalogProductID:    it.Item.CatalogProductID(),
			Name:                it.Item.Name,
			SKU:                 it.Item.SKU,
			Quantity:            it.Item.Quantity,
			SalePrice:           it.Item.Price.Decimal,
			LineTotal:           it.Item.Total.Decimal,
			UnitPrice:           it.Price.UnitPrice,
			SizeLabel:           sizeLabel,
			PriceResolution:     it.Price.Outcome,
		})
	}
	return rows
}
