// Package catalog derives a line item's vendor unit cost from its SKU and the
// catalog price snapshot carried on the order.
//
// SKUs are generated as PREFIX-productRef-timestamp-sizeCode-timestamp2. The
// decoder depends on that fixed layout; any other shape resolves to zero cost.
package catalog

import (
	"errors"
	"strings"
)

const (
	skuTokenCount = 5
	sizeCodeIndex = 3
)

var (
	ErrMalformedSKU    = errors.New("malformed sku")
	ErrUnknownSizeCode = errors.New("unknown size code")
)

var sizeLabels = map[string]string{
	"XS":   "XS",
	"S":    "Small",
	"M":    "Medium",
	"L":    "Large",
	"XL":   "XL",
	"XXL":  "XXL",
	"2XL":  "XXL",
	"3XL":  "3XL",
	"XXXL": "3XL",
}

// DecodeSizeCode extracts the size token from sku.
func DecodeSizeCode(sku string) (string, error) {
	tokens := strings.Split(strings.TrimSpace(sku), "-")
	if len(tokens) != skuTokenCount {
		return "", ErrMalformedSKU
	}
	code := strings.TrimSpace(tokens[sizeCodeIndex])
	if code == "" {
		return "", ErrMalformedSKU
	}
	return strings.ToUpper(code), nil
}

// SizeLabel maps a size code to the label catalog variants are keyed by.
func SizeLabel(code string) (string, error) {
	label, ok := sizeLabels[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", ErrUnknownSizeCode
	}
	return label, nil
}
