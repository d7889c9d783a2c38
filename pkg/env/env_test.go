package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetTreatsBlankAsUnset(t *testing.T) {
	t.Setenv("PRINTBRIDGE_TEST_VALUE", "   ")
	require.Equal(t, "fallback", Get("PRINTBRIDGE_TEST_VALUE", "fallback"))

	t.Setenv("PRINTBRIDGE_TEST_VALUE", " console ")
	require.Equal(t, "console", Get("PRINTBRIDGE_TEST_VALUE", "json"))
}
