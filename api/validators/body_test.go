package validators

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

func TestDecodeJSONAcceptsUnknownFields(t *testing.T) {
	var event types.OrderEvent
	err := DecodeJSON([]byte(`{"id": 77, "status": "processing", "customer_note": "x", "line_items": []}`), &event)
	require.NoError(t, err)
	require.Equal(t, "77", event.ID.String())
}

func TestDecodeJSONRejectsMalformed(t *testing.T) {
	var event types.OrderEvent
	err := DecodeJSON([]byte(`{"id": `), &event)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMalformedPayload))

	err = DecodeJSON([]byte("   "), &event)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMalformedPayload))
}

func TestDecodeJSONValidates(t *testing.T) {
	var event types.OrderEvent
	err := DecodeJSON([]byte(`{"status": "processing"}`), &event)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["OrderEvent.id"])

	err = DecodeJSON([]byte(`{"id": 1, "line_items": [{"id": 2, "quantity": -1}]}`), &event)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abc  ", 0))
	require.Equal(t, "ab", SanitizeString("abc", 2))
	require.Equal(t, "order.created", SanitizeString("order.\r\ncreated", 0))
	require.Equal(t, "caf", SanitizeString("café", 4), "multi-byte rune must not be split")
}
