//go:build integration

package wallet_test

import (
	"testing"

	"github.com/angelmondragon/printbridge-backend/pkg/db/dbtest"
)

func TestApplyLedgerRowLockNeverOverdrawsOnPostgres(t *testing.T) {
	assertParallelOrdersNeverOverdraw(t, newFixtureOn(t, dbtest.OpenPostgres(t)))
}

func TestApplyLedgerRowLockDebitsOrderOnceOnPostgres(t *testing.T) {
	assertSameOrderDebitsOnce(t, newFixtureOn(t, dbtest.OpenPostgres(t)))
}
