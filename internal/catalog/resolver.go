package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

// Resolution is the priced outcome of one line item. Anything other than a
// resolved outcome carries a zero unit price.
type Resolution struct {
	UnitPrice decimal.Decimal
	SizeCode  string
	SizeLabel string
	Outcome   enums.PriceResolution
}

// Cost is the unit price times quantity, or zero when unresolved.
func (r Resolution) Cost(quantity int) decimal.Decimal {
	if !r.Outcome.Resolved() || quantity <= 0 {
		return decimal.Zero
	}
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ResolveLineItem prices item against variants. It never fails: problems are
// reported through the outcome so one bad item cannot abort the order.
func ResolveLineItem(item types.LineItem, variants []types.CatalogVariant) Resolution {
	code, err := DecodeSizeCode(item.SKU)
	if err != nil {
		return Resolution{UnitPrice: decimal.Zero, Outcome: enums.PriceResolutionMalformedSKU}
	}

	label, err := SizeLabel(code)
	if err != nil {
		return Resolution{UnitPrice: decimal.Zero, SizeCode: code, Outcome: enums.PriceResolutionUnknownSizeCode}
	}

	for _, variant := range variants {
		if strings.EqualFold(strings.TrimSpace(variant.Size), label) {
			if variant.Price.IsNegative() {
				return Resolution{UnitPrice: decimal.Zero, SizeCode: code, SizeLabel: label, Outcome: enums.PriceResolutionInvalidPrice}
			}
			return Resolution{
				UnitPrice: variant.Price.Decimal,
				SizeCode:  code,
				SizeLabel: label,
				Outcome:   enums.PriceResolutionResolved,
			}
		}
	}
	return Resolution{UnitPrice: decimal.Zero, SizeCode: code, SizeLabel: label, Outcome: enums.PriceResolutionNoSizeMatch}
}
