package wallet

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/internal/orders"
	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox/payloads"
)

var (
	// ErrVendorUnresolved is returned for vendor ids that cannot own a wallet.
	ErrVendorUnresolved = errors.New("vendor unresolved")
	// ErrVendorWalletNotFound is returned when the vendor row is missing.
	ErrVendorWalletNotFound = errors.New("vendor wallet not found")

	errEntryRace = errors.New("ledger entry already written")
)

// Outcome describes what ApplyLedger did. Exactly one of Applied, Onhold and
// AlreadyApplied is set on success. Balance is the wallet balance afterwards.
type Outcome struct {
	Applied        bool
	Onhold         bool
	AlreadyApplied bool
	TotalCost      decimal.Decimal
	Balance        decimal.Decimal
	EntryID        uuid.UUID
}

// Shortfall is how much the wallet lacked for an onhold order.
func (o Outcome) Shortfall() decimal.Decimal {
	if !o.Onhold {
		return decimal.Zero
	}
	return o.TotalCost.Sub(o.Balance)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service debits vendor wallets for ingested orders.
type Service interface {
	ApplyLedger(ctx context.Context, orderID uuid.UUID, vendorID int64) (Outcome, error)
	Balance(ctx context.Context, vendorID int64) (decimal.Decimal, error)
	EntriesForVendor(ctx context.Context, vendorID int64) ([]models.WalletLedgerEntry, error)
}

type ServiceParams struct {
	Repo   Repository
	Orders orders.Repository
	Tx     txRunner
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	orders orders.Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &service{
		repo:   params.Repo,
		orders: params.Orders,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

// ApplyLedger debits the order's total cost from the vendor wallet at most
// once. The vendor row is locked before anything is read so concurrent
// deliveries for one vendor serialize on it. When the balance cannot cover
// the cost the order is put on hold and nothing is debited.
func (s *service) ApplyLedger(ctx context.Context, orderID uuid.UUID, vendorID int64) (Outcome, error) {
	if vendorID <= 0 {
		return Outcome{}, ErrVendorUnresolved
	}
	if orderID == uuid.Nil {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var outcome Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		outcome = Outcome{}
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		vendor, err := repo.LockVendor(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lock vendor wallet")
		}
		if vendor == nil {
			return ErrVendorWalletNotFound
		}
		outcome.Balance = vendor.WalletBalance

		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if orders.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
		}
		if order.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeConflict, "order belongs to another vendor")
		}

		existing, err := repo.FindEntryByOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load ledger entry")
		}
		if existing != nil || order.LedgerApplied {
			outcome.AlreadyApplied = true
			outcome.TotalCost = order.TotalCost
			if existing != nil {
				outcome.EntryID = existing.ID
				outcome.TotalCost = existing.AmountDebited
			}
			return nil
		}

		items, err := orderRepo.ListItems(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order items")
		}
		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.Cost())
		}
		outcome.TotalCost = total
		if total.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "order total is negative")
		}

		remaining := vendor.WalletBalance.Sub(total)
		if remaining.IsNegative() {
			outcome.Onhold = true
			if err := orderRepo.UpdateStatus(ctx, orderID, enums.OrderStatusOnhold, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "hold order")
			}
			return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderOnhold,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID.String(),
				Data: payloads.OrderOnholdEvent{
					VendorID:        vendorID,
					OrderID:         orderID,
					ExternalOrderID: order.ExternalOrderID,
					TotalCost:       total,
					Balance:         vendor.WalletBalance,
					Shortfall:       total.Sub(vendor.WalletBalance),
				},
			})
		}

		if err := repo.UpdateBalance(ctx, vendorID, remaining); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update wallet balance")
		}
		entry := &models.WalletLedgerEntry{
			ID:               uuid.New(),
			VendorID:         vendorID,
			OrderID:          orderID,
			AmountDebited:    total,
			ResultingBalance: remaining,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errEntryRace
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "insert ledger entry")
		}

		status := enums.OrderStatusProcessing
		if order.Status == enums.OrderStatusCompleted {
			status = order.Status
		}
		applied := true
		if err := orderRepo.UpdateStatus(ctx, orderID, status, &applied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "mark ledger applied")
		}

		outcome.Applied = true
		outcome.Balance = remaining
		outcome.EntryID = entry.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletDebited,
			AggregateType: enums.AggregateWallet,
			AggregateID:   strconv.FormatInt(vendorID, 10),
			Data: payloads.WalletDebitedEvent{
				VendorID:         vendorID,
				OrderID:          orderID,
				ExternalOrderID:  order.ExternalOrderID,
				LedgerEntryID:    entry.ID,
				AmountDebited:    total,
				ResultingBalance: remaining,
			},
		})
	})
	if errors.Is(err, errEntryRace) {
		balance, balErr := s.Balance(ctx, vendorID)
		if balErr != nil {
			return Outcome{}, balErr
		}
		return Outcome{AlreadyApplied: true, TotalCost: outcome.TotalCost, Balance: balance}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	s.logOutcome(ctx, orderID, vendorID, outcome)
	return outcome, nil
}

func (s *service) Balance(ctx context.Context, vendorID int64) (decimal.Decimal, error) {
	vendor, err := s.repo.FindVendor(ctx, vendorID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load vendor wallet")
	}
	if vendor == nil {
		return decimal.Zero, ErrVendorWalletNotFound
	}
	return vendor.WalletBalance, nil
}

func (s *service) EntriesForVendor(ctx context.Context, vendorID int64) ([]models.WalletLedgerEntry, error) {
	entries, err := s.repo.ListEntriesByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) logOutcome(ctx context.Context, orderID uuid.UUID, vendorID int64, outcome Outcome) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   orderID.String(),
		"vendor_id":  vendorID,
		"total_cost": outcome.TotalCost.StringFixed(2),
		"balance":    outcome.Balance.StringFixed(2),
	})
	switch {
	case outcome.Applied:
		s.logg.Info(logCtx, "wallet debited")
	case outcome.Onhold:
		s.logg.Warn(logCtx, "wallet balance insufficient, order on hold")
	case outcome.AlreadyApplied:
		s.logg.Info(logCtx, "wallet ledger already applied")
	}
}
