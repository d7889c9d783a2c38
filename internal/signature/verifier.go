// Package signature authenticates storefront webhook deliveries with an HMAC-SHA256
// digest computed over the raw request body.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrSignatureInvalid is the diagnostic attached to a digest mismatch.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// Result is the outcome of checking one delivery.
type Result string

const (
	Verified     Result = "verified"
	Missing      Result = "missing"
	Invalid      Result = "invalid"
	Unconfigured Result = "unconfigured"
)

// Policy decides which results may proceed into the pipeline.
type Policy struct {
	Strict        bool
	AllowUnsigned bool
}

// Verifier checks signatures against one shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(strings.TrimSpace(secret))}
}

// Verify compares the header against the digest of body. The header may be the
// base64 form WooCommerce and Shopify send, or hex.
func (v *Verifier) Verify(body []byte, header string) Result {
	if v == nil || len(v.secret) == 0 {
		return Unconfigured
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return Missing
	}

	provided, ok := decodeDigest(header)
	if !ok {
		return Invalid
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return Invalid
	}
	return Verified
}

// Sign returns the base64 digest a sender would attach for body.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Allows reports whether a delivery with result r may be processed.
// Invalid passes only in lenient mode. Missing passes only when unsigned
// deliveries are allowed. Unconfigured passes only in lenient mode.
func (p Policy) Allows(r Result) bool {
	switch r {
	case Verified:
		return true
	case Missing:
		return p.AllowUnsigned
	case Invalid, Unconfigured:
		return !p.Strict
	default:
		return false
	}
}

func decodeDigest(header string) ([]byte, bool) {
	if len(header) == hex.EncodedLen(sha256.Size) {
		if b, err := hex.DecodeString(header); err == nil {
			return b, true
		}
	}
	if b, err := base64.StdEncoding.DecodeString(header); err == nil && len(b) == sha256.Size {
		return b, true
	}
	return nil, false
}
