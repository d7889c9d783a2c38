package enums

import "strings"

// Platform identifies the storefront software that sent a webhook.
type Platform string

const (
	PlatformWooCommerce Platform = "woocommerce"
	PlatformShopify     Platform = "shopify"
	PlatformUnknown     Platform = "unknown"
)

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform normalizes a route or header value; anything unrecognized is PlatformUnknown.
func ParsePlatform(value string) Platform {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "woocommerce", "woo", "wc":
		return PlatformWooCommerce
	case "shopify":
		return PlatformShopify
	default:
		return PlatformUnknown
	}
}
