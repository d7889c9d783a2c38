package vendors_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/internal/vendors"
)

func newResolver(t *testing.T, conn *gorm.DB) *vendors.Resolver {
	t.Helper()
	resolver, err := vendors.NewResolver(vendors.ResolverParams{Repo: vendors.NewRepository(conn)})
	require.NoError(t, err)
	return resolver
}

func int64String(v int64) string {
	return strconv.FormatInt(v, 10)
}
