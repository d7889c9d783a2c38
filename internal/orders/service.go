package orders

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/pkg/db"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records storefront orders idempotently.
type Service interface {
	UpsertOrder(ctx context.Context, input UpsertInput) (*UpsertResult, error)
	EnsureSchema(ctx context.Context) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByVendorAndExternalID(ctx context.Context, vendorID int64, externalID string) (*models.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	DB     *gorm.DB
	Logger *logger.Logger
}

type service struct {
	repo Repository
	tx   txRunner
	db   *gorm.DB
	logg *logger.Logger

	schemaReady atomic.Bool
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo: params.Repo,
		tx:   params.Tx,
		db:   params.DB,
		logg: params.Logger,
	}, nil
}

// UpsertOrder writes the order header and, unless the wallet was already
// debited for it, replaces its items. Both happen in one transaction.
func (s *service) UpsertOrder(ctx context.Context, input UpsertInput) (*UpsertResult, error) {
	if input.Event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order event required")
	}
	if input.Event.ID.String() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := buildOrder(input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformedPayload, err, "snapshot line items")
	}

	if err := s.ensureSchemaOnce(ctx); err != nil {
		return nil, err
	}

	result := &UpsertResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.UpsertOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "upsert order")
		}
		result.Order = stored

		if stored.LedgerApplied {
			return nil
		}
		if err := repo.ReplaceItems(ctx, stored.ID, buildItems(stored.ID, input.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "replace order items")
		}
		result.ItemsReplaced = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":          result.Order.ID.String(),
			"external_order_id": result.Order.ExternalOrderID,
			"vendor_id":         result.Order.VendorID,
			"status":            result.Order.Status,
			"items_replaced":    result.ItemsReplaced,
		})
		s.logg.Info(logCtx, "order upserted")
	}
	return result, nil
}

// EnsureSchema creates any missing table. Deployed databases get their schema
// from goose migrations, so there it only confirms the tables exist. The first
// UpsertOrder calls it as well.
func (s *service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "database handle required")
	}
	if err := db.EnsureTables(ctx, s.db, models.All()...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "ensure order schema")
	}
	return nil
}

// ensureSchemaOnce runs EnsureSchema until it first succeeds. Without a
// database handle the schema is assumed to be managed elsewhere.
func (s *service) ensureSchemaOnce(ctx context.Context) error {
	if s.db == nil || s.schemaReady.Load() {
		return nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	s.schemaReady.Store(true)
	return nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, readError(err, "order not found")
	}
	return order, nil
}

func (s *service) FindByVendorAndExternalID(ctx context.Context, vendorID int64, externalID string) (*models.Order, error) {
	order, err := s.repo.FindByVendorAndExternalID(ctx, vendorID, externalID)
	if err != nil {
		return nil, readError(err, "order not found")
	}
	return order, nil
}

func (s *service) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	items, err := s.repo.ListItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list order items")
	}
	return items, nil
}

func readError(err error, notFound string) error {
	if IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
}
