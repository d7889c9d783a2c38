package enums

// PriceResolution records how a line item's vendor unit cost was derived.
type PriceResolution string

const (
	PriceResolutionResolved        PriceResolution = "resolved"
	PriceResolutionMalformedSKU    PriceResolution = "malformed_sku"
	PriceResolutionUnknownSizeCode PriceResolution = "unknown_size_code"
	PriceResolutionNoSizeMatch     PriceResolution = "no_size_match"
	PriceResolutionInvalidPrice    PriceResolution = "invalid_price"
)

// String implements fmt.Stringer.
func (p PriceResolution) String() string {
	return string(p)
}

// Resolved reports whether the line item contributes to the vendor liability.
func (p PriceResolution) Resolved() bool {
	return p == PriceResolutionResolved
}
