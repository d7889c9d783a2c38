package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyDecodesLooseInputs(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
		D Money `json:"d"`
		E Money `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.50","b":450,"c":"","d":null}`), &payload))
	assert.True(t, payload.A.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, payload.B.Equal(decimal.NewFromInt(450)))
	assert.True(t, payload.C.IsZero())
	assert.True(t, payload.D.IsZero())
	assert.True(t, payload.E.IsZero())

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`"twelve"`), &bad))

	out, err := json.Marshal(NewMoney("7.5"))
	require.NoError(t, err)
	assert.Equal(t, `"7.50"`, string(out))
}

func TestFlexibleID(t *testing.T) {
	var ids struct {
		A FlexibleID `json:"a"`
		B FlexibleID `json:"b"`
		C FlexibleID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1042,"b":" 5600213 ","c":null}`), &ids))
	assert.Equal(t, FlexibleID("1042"), ids.A)
	assert.Equal(t, FlexibleID("5600213"), ids.B)
	assert.Equal(t, FlexibleID(""), ids.C)

	n, ok := ids.A.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(1042), n)
	_, ok = FlexibleID("0").Int64()
	assert.False(t, ok)
	_, ok = FlexibleID("abc").Int64()
	assert.False(t, ok)
}

func TestOrderEventMetaAndVariants(t *testing.T) {
	body := `{
		"id": 1042,
		"status": "Processing",
		"meta_data": [
			{"key": "_wc_order_attribution_session_entry", "value": "https://shop.example.com/product/tee"},
			{"key": "_vendor_id", "value": 7}
		],
		"line_items": [
			{
				"id": 1, "sku": "DP-11-1756979182217-L-1756979190843", "quantity": 2, "price": 25,
				"meta_data": [
					{"key": "_pod_product_id", "value": "11"},
					{"key": "_pod_variants", "value": [{"size": "Large", "price": 450}]}
				]
			},
			{
				"id": 2, "sku": "X", "quantity": 1,
				"meta_data": [{"key": "_pod_variants", "value": "[{\"size\":\"Small\",\"price\":\"300.00\"}]"}]
			}
		]
	}`
	var event OrderEvent
	require.NoError(t, json.Unmarshal([]byte(body), &event))
	event.Normalize()

	assert.Equal(t, "processing", event.Status)
	assert.Equal(t, "https://shop.example.com/product/tee", event.Meta(MetaSessionEntry))
	assert.Equal(t, "7", event.Meta(MetaVendorID))
	assert.Equal(t, "", event.Meta("missing"))

	first := event.LineItems[0]
	require.NotNil(t, first.CatalogProductID())
	assert.Equal(t, int64(11), *first.CatalogProductID())
	variants := first.CatalogVariants()
	require.Len(t, variants, 1)
	assert.Equal(t, "Large", variants[0].Size)
	assert.True(t, variants[0].Price.Equal(decimal.NewFromInt(450)))
	assert.True(t, first.Total.Equal(decimal.NewFromInt(50)), "total derived from price x quantity")

	second := event.LineItems[1]
	assert.Nil(t, second.CatalogProductID())
	require.Len(t, second.CatalogVariants(), 1)
	assert.Equal(t, "Small", second.CatalogVariants()[0].Size)
}

func TestNormalizeFoldsShopifyFields(t *testing.T) {
	body := `{
		"id": 5600213,
		"financial_status": "paid",
		"total_price": "80.00",
		"total_discounts": "5.00",
		"order_status_url": "https://demo.myshopify.com/1/orders/abc/authenticate",
		"created_at": "2025-09-04T10:00:00-04:00",
		"line_items": [{"id": 9, "variant_id": 44, "sku": "A", "quantity": 1, "price": "80.00"}]
	}`
	var event OrderEvent
	require.NoError(t, json.Unmarshal([]byte(body), &event))
	event.Normalize()

	assert.True(t, event.Total.Equal(decimal.NewFromInt(80)))
	assert.True(t, event.DiscountTotal.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "paid", event.Status)
	assert.Equal(t, "https://demo.myshopify.com/1/orders/abc/authenticate", event.PaymentURL)
	assert.Equal(t, FlexibleID("44"), event.LineItems[0].VariationID)

	created := event.CreatedAtTime()
	require.NotNil(t, created)
	assert.Equal(t, 14, created.Hour())
}
