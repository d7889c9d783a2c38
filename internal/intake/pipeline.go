// Package intake runs one parsed storefront order through vendor resolution,
// catalog pricing, order persistence and the wallet ledger.
package intake

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/internal/catalog"
	"github.com/angelmondragon/printbridge-backend/internal/orders"
	"github.com/angelmondragon/printbridge-backend/internal/vendors"
	"github.com/angelmondragon/printbridge-backend/internal/wallet"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/metrics"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

// LedgerResult names what happened to the vendor wallet for one delivery.
type LedgerResult string

const (
	LedgerApplied           LedgerResult = "applied"
	LedgerOnhold            LedgerResult = "onhold"
	LedgerAlreadyApplied    LedgerResult = "already_applied"
	LedgerWalletMissing     LedgerResult = "wallet_missing"
	LedgerSkippedUnresolved LedgerResult = "skipped_unresolved"
	LedgerSkippedCancelled  LedgerResult = "skipped_cancelled"
)

// Delivery is one decoded webhook plus its transport metadata.
type Delivery struct {
	Event      *types.OrderEvent
	Topic      string
	Platform   enums.Platform
	DeliveryID string
	SourceURL  string
}

// Result summarizes a processed delivery for the acknowledgement and logs.
type Result struct {
	Duplicate       bool
	OrderID         uuid.UUID
	ExternalOrderID string
	VendorID        int64
	VendorSource    vendors.Source
	Status          enums.OrderStatus
	Ledger          LedgerResult
	UnpricedItems   int
}

// Message is the human readable summary returned to the sender.
func (r Result) Message() string {
	if r.Duplicate {
		return "Duplicate delivery ignored"
	}
	switch r.Ledger {
	case LedgerApplied:
		return "Order processed and wallet debited"
	case LedgerOnhold:
		return "Order saved and placed on hold: insufficient wallet balance"
	case LedgerAlreadyApplied:
		return "Order updated; wallet already debited"
	case LedgerWalletMissing:
		return "Order saved; vendor wallet not found"
	case LedgerSkippedUnresolved:
		return "Order saved; vendor could not be resolved"
	case LedgerSkippedCancelled:
		return "Order saved; cancelled orders are not debited"
	default:
		return "Order processed"
	}
}

type vendorResolver interface {
	Resolve(ctx context.Context, event *types.OrderEvent, hints vendors.Hints) (vendors.Resolution, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type PipelineParams struct {
	Resolver vendorResolver
	Orders   orders.Service
	Wallet   wallet.Service
	Outbox   outbox.Emitter
	Tx       txRunner
	Guard    *DeliveryGuard
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

type Pipeline struct {
	resolver vendorResolver
	orders   orders.Service
	wallet   wallet.Service
	outbox   outbox.Emitter
	tx       txRunner
	guard    *DeliveryGuard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor resolver required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Pipeline{
		resolver: params.Resolver,
		orders:   params.Orders,
		wallet:   params.Wallet,
		outbox:   params.Outbox,
		tx:       params.Tx,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process persists the delivery and settles the vendor wallet. Soft outcomes
// (unresolved vendor, missing wallet, hold) are reported in the Result; only
// failures that the sender should retry are returned as errors, and those
// release the delivery guard first.
func (p *Pipeline) Process(ctx context.Context, d Delivery) (result Result, err error) {
	if d.Event == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "order event required")
	}
	started := time.Now()
	platform := string(d.Platform)

	duplicate, err := p.guard.CheckAndMark(ctx, platform, d.DeliveryID)
	if err != nil {
		// The guard is an optimization; the upsert and ledger stay idempotent without it.
		p.warn(ctx, "delivery guard unavailable, processing without it")
	}
	if duplicate {
		p.metrics.IncDelivery(d.Topic, "duplicate")
		return Result{Duplicate: true, ExternalOrderID: d.Event.ID.String()}, nil
	}

	defer func() {
		p.metrics.ObserveDuration(d.Topic, time.Since(started))
		if err != nil {
			p.metrics.IncDelivery(d.Topic, "failed")
			if relErr := p.guard.Release(context.WithoutCancel(ctx), platform, d.DeliveryID); relErr != nil {
				p.warn(ctx, "release delivery guard failed")
			}
			return
		}
		p.metrics.IncDelivery(d.Topic, string(result.Ledger))
	}()

	d.Event.Normalize()
	result.ExternalOrderID = d.Event.ID.String()

	resolution, err := p.resolver.Resolve(ctx, d.Event, vendors.Hints{SourceURL: d.SourceURL, Platform: d.Platform})
	if err != nil {
		return result, err
	}
	result.VendorID = resolution.VendorID
	result.VendorSource = resolution.Source
	if p.logg != nil {
		ctx = p.logg.WithField(p.logg.WithOrder(ctx, result.ExternalOrderID, resolution.VendorID), "vendor_source", resolution.Source)
	}

	items, unpriced := p.priceItems(ctx, d.Event)
	result.UnpricedItems = unpriced

	upserted, err := p.orders.UpsertOrder(ctx, orders.UpsertInput{
		Event:    d.Event,
		Vendor:   resolution,
		Items:    items,
		Topic:    d.Topic,
		Platform: d.Platform,
	})
	if err != nil {
		return result, err
	}
	order := upserted.Order
	result.OrderID = order.ID
	result.Status = order.Status

	switch {
	case !resolution.Resolved:
		result.Ledger = LedgerSkippedUnresolved
		p.warn(ctx, "vendor unresolved, order flagged for assignment")
		if err := p.emitOnce(ctx, outbox.DomainEvent{
			EventType:     enums.EventOrderVendorUnresolved,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID.String(),
			Source:        sourceRef(d),
			Data: payloads.OrderVendorUnresolvedEvent{
				OrderID:         order.ID,
				ExternalOrderID: order.ExternalOrderID,
				StoreURL:        resolution.StoreURL,
				Status:          order.Status,
			},
		}); err != nil {
			return result, err
		}
	case order.Status == enums.OrderStatusCancelled && !order.LedgerApplied:
		result.Ledger = LedgerSkippedCancelled
	default:
		if err := p.applyLedger(ctx, d, order.ID, order.ExternalOrderID, resolution.VendorID, &result); err != nil {
			return result, err
		}
	}

	p.metrics.IncLedger(string(result.Ledger))
	if p.logg != nil {
		p.logg.Info(p.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"status":   result.Status,
			"ledger":   result.Ledger,
			"topic":    d.Topic,
		}), "order webhook processed")
	}
	return result, nil
}

func (p *Pipeline) applyLedger(ctx context.Context, d Delivery, orderID uuid.UUID, externalID string, vendorID int64, result *Result) error {
	outcome, err := p.wallet.ApplyLedger(ctx, orderID, vendorID)
	switch {
	case errors.Is(err, wallet.ErrVendorWalletNotFound):
		result.Ledger = LedgerWalletMissing
		if p.logg != nil {
			p.logg.Error(ctx, "vendor wallet not found, ledger skipped", err)
		}
		return p.emitOnce(ctx, outbox.DomainEvent{
			EventType:     enums.EventWalletMissing,
			AggregateType: enums.AggregateWallet,
			AggregateID:   strconv.FormatInt(vendorID, 10),
			Source:        sourceRef(d),
			Data: payloads.WalletMissingEvent{
				VendorID:        vendorID,
				OrderID:         orderID,
				ExternalOrderID: externalID,
			},
		})
	case err != nil:
		return err
	}

	switch {
	case outcome.Applied:
		result.Ledger = LedgerApplied
		result.Status = enums.OrderStatusProcessing
	case outcome.Onhold:
		result.Ledger = LedgerOnhold
		result.Status = enums.OrderStatusOnhold
	default:
		result.Ledger = LedgerAlreadyApplied
	}
	if outcome.Applied || outcome.Onhold {
		stored, err := p.orders.FindByID(ctx, orderID)
		if err == nil {
			result.Status = stored.Status
		}
	}
	return nil
}

func (p *Pipeline) priceItems(ctx context.Context, event *types.OrderEvent) ([]orders.PricedItem, int) {
	items := make([]orders.PricedItem, 0, len(event.LineItems))
	unpriced := map[enums.PriceResolution]int{}
	for i := range event.LineItems {
		item := event.LineItems[i]
		price := catalog.ResolveLineItem(item, item.CatalogVariants())
		if !price.Outcome.Resolved() {
			unpriced[price.Outcome]++
			if p.logg != nil {
				p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
					"sku":              item.SKU,
					"line_item_id":     item.ID.String(),
					"price_resolution": price.Outcome,
				}), "line item priced at zero")
			}
		}
		items = append(items, orders.PricedItem{Item: item, Price: price})
	}
	total := 0
	for reason, n := range unpriced {
		p.metrics.AddUnpricedItems(string(reason), n)
		total += n
	}
	return items, total
}

func (p *Pipeline) emitOnce(ctx context.Context, event outbox.DomainEvent) error {
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return p.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "queue operator event")
	}
	return nil
}

func (p *Pipeline) warn(ctx context.Context, msg string) {
	if p.logg != nil {
		p.logg.Warn(ctx, msg)
	}
}

func sourceRef(d Delivery) *outbox.SourceRef {
	return &outbox.SourceRef{
		Platform:   string(d.Platform),
		Topic:      d.Topic,
		DeliveryID: d.DeliveryID,
	}
}
