package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Order metadata keys the pipeline reads.
const (
	MetaVendorID        = "_vendor_id"
	MetaSessionEntry    = "_wc_order_attribution_session_entry"
	MetaCatalogProduct  = "_pod_product_id"
	MetaCatalogVariants = "_pod_variants"
)

// OrderEvent is the typed form of a storefront order webhook body. WooCommerce
// field names are primary; the Shopify equivalents are folded in by Normalize.
type OrderEvent struct {
	ID             FlexibleID  `json:"id" validate:"required,max=64"`
	Number         string      `json:"number,omitempty"`
	Status         string      `json:"status" validate:"max=64"`
	Currency       string      `json:"currency" validate:"max=8"`
	DateCreated    string      `json:"date_created,omitempty"`
	DateCreatedGMT string      `json:"date_created_gmt,omitempty"`
	Subtotal       Money       `json:"subtotal"`
	DiscountTotal  Money       `json:"discount_total"`
	ShippingTotal  Money       `json:"shipping_total"`
	TotalTax       Money       `json:"total_tax"`
	Total          Money       `json:"total"`
	Billing        *Contact    `json:"billing,omitempty"`
	Shipping       *Contact    `json:"shipping,omitempty"`
	PaymentURL     string      `json:"payment_url,omitempty"`
	VendorID       FlexibleID  `json:"vendor_id,omitempty"`
	MetaData       []MetaEntry `json:"meta_data,omitempty" validate:"dive"`
	LineItems      []LineItem  `json:"line_items" validate:"dive"`

	// Shopify dialect.
	TotalPrice      Money  `json:"total_price"`
	SubtotalPrice   Money  `json:"subtotal_price"`
	TotalDiscounts  Money  `json:"total_discounts"`
	OrderStatusURL  string `json:"order_status_url,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	FinancialStatus string `json:"financial_status,omitempty"`
}

// LineItem is one purchased product/variation of an order.
type LineItem struct {
	ID          FlexibleID       `json:"id"`
	Name        string           `json:"name"`
	ProductID   FlexibleID       `json:"product_id"`
	VariationID FlexibleID       `json:"variation_id"`
	VariantID   FlexibleID       `json:"variant_id"`
	SKU         string           `json:"sku"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	Price       Money            `json:"price"`
	Total       Money            `json:"total"`
	Variants    []CatalogVariant `json:"variants,omitempty"`
	MetaData    []MetaEntry      `json:"meta_data,omitempty" validate:"dive"`
}

// CatalogVariant is one entry of the price snapshot the catalog attaches to a line item.
type CatalogVariant struct {
	Size  string `json:"size"`
	Price Money  `json:"price"`
}

// MetaEntry is a storefront key/value pair. Value is kept raw since senders
// put strings, numbers and objects there.
type MetaEntry struct {
	Key   string          `json:"key" validate:"max=255"`
	Value json.RawMessage `json:"value"`
}

// Normalize fills WooCommerce-named fields from their Shopify equivalents
// when the former are absent.
func (e *OrderEvent) Normalize() {
	if e.Total.IsZero() && !e.TotalPrice.IsZero() {
		e.Total = e.TotalPrice
	}
	if e.Subtotal.IsZero() && !e.SubtotalPrice.IsZero() {
		e.Subtotal = e.SubtotalPrice
	}
	if e.DiscountTotal.IsZero() && !e.TotalDiscounts.IsZero() {
		e.DiscountTotal = e.TotalDiscounts
	}
	if e.PaymentURL == "" {
		e.PaymentURL = e.OrderStatusURL
	}
	if e.DateCreatedGMT == "" && e.DateCreated == "" {
		e.DateCreated = e.CreatedAt
	}
	if e.Status == "" {
		e.Status = e.FinancialStatus
	}
	e.Status = strings.ToLower(strings.TrimSpace(e.Status))
	for i := range e.LineItems {
		item := &e.LineItems[i]
		if item.VariationID == "" {
			item.VariationID = item.VariantID
		}
		if item.Total.IsZero() && !item.Price.IsZero() && item.Quantity > 0 {
			item.Total = Money{Decimal: item.Price.Mul(decimalFromInt(item.Quantity))}
		}
	}
}

// Meta returns the string form of the first order meta entry with key.
func (e *OrderEvent) Meta(key string) string {
	return metaString(e.MetaData, key)
}

// CreatedAtTime parses the sender's creation timestamp, preferring the GMT field.
func (e *OrderEvent) CreatedAtTime() *time.Time {
	for _, raw := range []string{e.DateCreatedGMT, e.DateCreated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, raw); err == nil {
				utc := t.UTC()
				return &utc
			}
		}
	}
	return nil
}

// Meta returns the string form of the first line item meta entry with key.
func (l *LineItem) Meta(key string) string {
	return metaString(l.MetaData, key)
}

// CatalogVariants returns the price snapshot, from the variants field or the
// catalog meta entry.
func (l *LineItem) CatalogVariants() []CatalogVariant {
	if len(l.Variants) > 0 {
		return l.Variants
	}
	for _, m := range l.MetaData {
		if m.Key != MetaCatalogVariants {
			continue
		}
		raw := bytes.TrimSpace(m.Value)
		// some senders store the list JSON-encoded inside a string
		if len(raw) > 0 && raw[0] == '"' {
			var inner string
			if err := json.Unmarshal(raw, &inner); err != nil {
				return nil
			}
			raw = []byte(inner)
		}
		var variants []CatalogVariant
		if err := json.Unmarshal(raw, &variants); err != nil {
			return nil
		}
		return variants
	}
	return nil
}

// CatalogProductID returns the catalog product link, if the line item carries one.
func (l *LineItem) CatalogProductID() *int64 {
	id, ok := FlexibleID(l.Meta(MetaCatalogProduct)).Int64()
	if !ok {
		return nil
	}
	return &id
}

func metaString(entries []MetaEntry, key string) string {
	for _, m := range entries {
		if m.Key != key {
			continue
		}
		raw := bytes.TrimSpace(m.Value)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return ""
		}
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return ""
			}
			return strings.TrimSpace(s)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
		return ""
	}
	return ""
}
