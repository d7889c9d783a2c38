package intake_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/printbridge-backend/internal/intake"
	"github.com/angelmondragon/printbridge-backend/internal/orders"
	"github.com/angelmondragon/printbridge-backend/internal/vendors"
	"github.com/angelmondragon/printbridge-backend/internal/wallet"
	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/db/dbtest"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

const storeURL = "https://shop.example.com"

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]struct{}{}}
}

func (m *memoryStore) ClaimDelivery(_ context.Context, platform, deliveryID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := platform + ":" + deliveryID
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryStore) ReleaseDelivery(_ context.Context, platform, deliveryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, platform+":"+deliveryID)
	return nil
}

func (m *memoryStore) has(platform, deliveryID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[platform+":"+deliveryID]
	return ok
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, *types.OrderEvent, vendors.Hints) (vendors.Resolution, error) {
	return vendors.Resolution{}, errors.New("directory offline")
}

type harness struct {
	client   *db.Client
	store    *memoryStore
	pipeline *intake.Pipeline
	wallet   wallet.Service
}

func newHarness(t *testing.T, resolverOverride interface {
	Resolve(context.Context, *types.OrderEvent, vendors.Hints) (vendors.Resolution, error)
}) harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{Repo: orderRepo, Tx: client, DB: conn})
	require.NoError(t, err)
	walletSvc, err := wallet.NewService(wallet.ServiceParams{
		Repo:   wallet.NewRepository(conn),
		Orders: orderRepo,
		Tx:     client,
		Outbox: emitter,
	})
	require.NoError(t, err)

	store := newMemoryStore()
	guard, err := intake.NewDeliveryGuard(store, time.Hour)
	require.NoError(t, err)

	params := intake.PipelineParams{
		Orders: orderSvc,
		Wallet: walletSvc,
		Outbox: emitter,
		Tx:     client,
		Guard:  guard,
	}
	if resolverOverride != nil {
		params.Resolver = resolverOverride
	} else {
		resolver, err := vendors.NewResolver(vendors.ResolverParams{Repo: vendors.NewRepository(conn)})
		require.NoError(t, err)
		params.Resolver = resolver
	}
	pipeline, err := intake.NewPipeline(params)
	require.NoError(t, err)

	return harness{client: client, store: store, pipeline: pipeline, wallet: walletSvc}
}

func (h harness) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

// orderEvent builds a delivery for storeURL with qty large tees priced at 45.
func orderEvent(id, status string, qty int) *types.OrderEvent {
	entry, _ := json.Marshal(storeURL + "/product/tee")
	return &types.OrderEvent{
		ID:       types.FlexibleID(id),
		Status:   status,
		Currency: "USD",
		Total:    types.NewMoney("99.00"),
		MetaData: []types.MetaEntry{{Key: types.MetaSessionEntry, Value: entry}},
		LineItems: []types.LineItem{{
			ID:       types.FlexibleID("1"),
			Name:     "Tee",
			SKU:      "DP-11-1700000000-L-1700000001",
			Quantity: qty,
			Price:    types.NewMoney("33.00"),
			Variants: []types.CatalogVariant{
				{Size: "Large", Price: types.NewMoney("45.00")},
				{Size: "Small", Price: types.NewMoney("40.00")},
			},
		}},
	}
}

func delivery(event *types.OrderEvent, deliveryID string) intake.Delivery {
	return intake.Delivery{
		Event:      event,
		Topic:      "order.created",
		Platform:   enums.PlatformWooCommerce,
		DeliveryID: deliveryID,
	}
}

func TestProcessDebitsResolvedVendor(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "150")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL+"/", enums.StoreConnectionActive)

	result, err := h.pipeline.Process(ctx, delivery(orderEvent("5001", "processing", 3), "d-1"))
	require.NoError(t, err)
	require.Equal(t, intake.LedgerApplied, result.Ledger)
	require.Equal(t, vendor.ID, result.VendorID)
	require.Equal(t, vendors.SourceSessionEntry, result.VendorSource)
	require.Equal(t, enums.OrderStatusProcessing, result.Status)

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(15)))
	require.EqualValues(t, 1, h.outboxCount(t, enums.EventWalletDebited))
}

func TestProcessShortCircuitsRepeatedDelivery(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "150")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL, enums.StoreConnectionActive)

	_, err := h.pipeline.Process(ctx, delivery(orderEvent("5002", "processing", 1), "d-2"))
	require.NoError(t, err)

	dup, err := h.pipeline.Process(ctx, delivery(orderEvent("5002", "processing", 1), "d-2"))
	require.NoError(t, err)
	require.True(t, dup.Duplicate)

	// A fresh delivery id for the same order reaches the ledger, which refuses a second debit.
	again, err := h.pipeline.Process(ctx, delivery(orderEvent("5002", "processing", 1), "d-3"))
	require.NoError(t, err)
	require.Equal(t, intake.LedgerAlreadyApplied, again.Ledger)

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(105)))

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProcessHoldsWhenWalletShort(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "100")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL, enums.StoreConnectionActive)

	result, err := h.pipeline.Process(ctx, delivery(orderEvent("5003", "processing", 3), "d-4"))
	require.NoError(t, err)
	require.Equal(t, intake.LedgerOnhold, result.Ledger)
	require.Equal(t, enums.OrderStatusOnhold, result.Status)
	require.Contains(t, result.Message(), "on hold")

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(100)))
	require.EqualValues(t, 1, h.outboxCount(t, enums.EventOrderOnhold))
}

func TestProcessFlagsUnresolvedVendor(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, id := range []string{"d-5", "d-6"} {
		result, err := h.pipeline.Process(ctx, delivery(orderEvent("5004", "processing", 1), id))
		require.NoError(t, err)
		require.Equal(t, intake.LedgerSkippedUnresolved, result.Ledger)
		require.Equal(t, enums.OrderStatusNeedsVendorAssignment, result.Status)
		require.EqualValues(t, 0, result.VendorID)
	}

	var order models.Order
	require.NoError(t, h.client.DB().Where("external_order_id = ?", "5004").First(&order).Error)
	require.True(t, order.NeedsVendorAssignment)
	require.NotNil(t, order.StoreURL)
	require.Equal(t, storeURL, *order.StoreURL)
	require.EqualValues(t, 1, h.outboxCount(t, enums.EventOrderVendorUnresolved))

	var entries int64
	require.NoError(t, h.client.DB().Model(&models.WalletLedgerEntry{}).Count(&entries).Error)
	require.Zero(t, entries)
}

func TestProcessReportsMissingWallet(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	dbtest.SeedConnection(t, h.client.DB(), 999, storeURL, enums.StoreConnectionActive)

	result, err := h.pipeline.Process(ctx, delivery(orderEvent("5005", "processing", 1), "d-7"))
	require.NoError(t, err)
	require.Equal(t, intake.LedgerWalletMissing, result.Ledger)
	require.EqualValues(t, 999, result.VendorID)
	require.EqualValues(t, 1, h.outboxCount(t, enums.EventWalletMissing))

	var order models.Order
	require.NoError(t, h.client.DB().Where("external_order_id = ?", "5005").First(&order).Error)
	require.False(t, order.LedgerApplied)
	require.Equal(t, enums.OrderStatusProcessing, order.Status)
}

func TestProcessSkipsCancelledOrders(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "150")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL, enums.StoreConnectionActive)

	result, err := h.pipeline.Process(ctx, delivery(orderEvent("5006", "cancelled", 1), "d-8"))
	require.NoError(t, err)
	require.Equal(t, intake.LedgerSkippedCancelled, result.Ledger)

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(150)))
}

func TestProcessCountsUnpricedItems(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "150")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL, enums.StoreConnectionActive)

	event := orderEvent("5007", "processing", 1)
	event.LineItems = append(event.LineItems, types.LineItem{ID: "2", SKU: "DP-11", Quantity: 2})

	result, err := h.pipeline.Process(ctx, delivery(event, "d-9"))
	require.NoError(t, err)
	require.Equal(t, 1, result.UnpricedItems)
	require.Equal(t, intake.LedgerApplied, result.Ledger)

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(105)))
}

func TestProcessNeverCreditsOnNegativeCatalogPrice(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	vendor := dbtest.SeedVendor(t, h.client.DB(), "acme", "100")
	dbtest.SeedConnection(t, h.client.DB(), vendor.ID, storeURL, enums.StoreConnectionActive)

	event := orderEvent("5009", "processing", 2)
	event.LineItems[0].Variants = []types.CatalogVariant{{Size: "Large", Price: types.NewMoney("-500.00")}}

	result, err := h.pipeline.Process(ctx, delivery(event, "d-11"))
	require.NoError(t, err)
	require.Equal(t, 1, result.UnpricedItems)

	balance, err := h.wallet.Balance(ctx, vendor.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(100)), "balance=%s", balance)

	entries, err := h.wallet.EntriesForVendor(ctx, vendor.ID)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, e.AmountDebited.IsNegative())
	}
}

func TestProcessReleasesGuardOnFailure(t *testing.T) {
	h := newHarness(t, failingResolver{})

	_, err := h.pipeline.Process(context.Background(), delivery(orderEvent("5008", "processing", 1), "d-10"))
	require.Error(t, err)
	require.False(t, h.store.has("woocommerce", "d-10"))
}

func TestDeliveryGuard(t *testing.T) {
	_, err := intake.NewDeliveryGuard(nil, time.Minute)
	require.Error(t, err)

	store := newMemoryStore()
	guard, err := intake.NewDeliveryGuard(store, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	seen, err := guard.CheckAndMark(ctx, "shopify", "abc")
	require.NoError(t, err)
	require.False(t, seen)
	seen, err = guard.CheckAndMark(ctx, "shopify", "abc")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, guard.Release(ctx, "shopify", "abc"))
	seen, err = guard.CheckAndMark(ctx, "shopify", "abc")
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = guard.CheckAndMark(ctx, "shopify", "")
	require.NoError(t, err)
	require.False(t, seen)

	var disabled *intake.DeliveryGuard
	seen, err = disabled.CheckAndMark(ctx, "shopify", "abc")
	require.NoError(t, err)
	require.False(t, seen)
}
