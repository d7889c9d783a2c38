// Package dbtest opens isolated in-memory SQLite databases carrying the full
// printbridge schema for package tests.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// Open returns a client over a private in-memory database. The pool is pinned
// to one connection so the database lives as long as the test.
func Open(t *testing.T) *db.Client {
	t.Helper()
	client := OpenEmpty(t)
	require.NoError(t, db.EnsureTables(context.Background(), client.DB(), models.All()...))
	return client
}

// OpenEmpty is Open without the schema.
func OpenEmpty(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.FromGorm(conn)
}

// PostgresDSNEnv names the database used by tests that need real row locks.
const PostgresDSNEnv = "PRINTBRIDGE_TEST_DB_DSN"

// OpenPostgres connects to the database named by PostgresDSNEnv with a
// multi-connection pool, or skips the test when it is unset.
func OpenPostgres(t *testing.T) *db.Client {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: db.DriverPostgres, MaxOpenConns: 8}, false, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, db.EnsureTables(context.Background(), client.DB(), models.All()...))
	return client
}

// SeedVendor inserts a vendor with the given wallet balance.
func SeedVendor(t *testing.T, conn *gorm.DB, name string, balance string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{Name: name, WalletBalance: decimal.RequireFromString(balance)}
	require.NoError(t, conn.Create(vendor).Error)
	return vendor
}

// SeedConnection links a store URL to a vendor.
func SeedConnection(t *testing.T, conn *gorm.DB, vendorID int64, storeURL string, status enums.StoreConnectionStatus) *models.StoreConnection {
	t.Helper()
	connection := &models.StoreConnection{
		VendorID: vendorID,
		StoreURL: storeURL,
		Platform: enums.PlatformWooCommerce,
		Status:   status,
	}
	require.NoError(t, conn.Create(connection).Error)
	return connection
}
