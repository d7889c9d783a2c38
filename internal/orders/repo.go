package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// upsertColumns are overwritten from the latest delivery on conflict. status
// and total_cost are handled separately because a debited order keeps them.
var upsertColumns = []string{
	"store_url",
	"platform",
	"topic",
	"external_status",
	"needs_vendor_assignment",
	"currency",
	"subtotal",
	"discount_total",
	"shipping_total",
	"total_tax",
	"total",
	"billing",
	"shipping",
	"line_items_snapshot",
	"webhook_received",
	"external_created_at",
	"updated_at",
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertOrder inserts the order or updates the row sharing its
// (vendor_id, external_order_id) key, then reloads the stored row.
func (r *repository) UpsertOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	assignments := clause.AssignmentColumns(upsertColumns)
	assignments = append(assignments,
		clause.Assignment{
			Column: clause.Column{Name: "status"},
			Value: gorm.Expr(
				"CASE WHEN orders.ledger_applied AND excluded.status NOT IN (?, ?) THEN orders.status ELSE excluded.status END",
				enums.OrderStatusCompleted, enums.OrderStatusCancelled,
			),
		},
		clause.Assignment{
			Column: clause.Column{Name: "total_cost"},
			Value:  gorm.Expr("CASE WHEN orders.ledger_applied THEN orders.total_cost ELSE excluded.total_cost END"),
		},
	)

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "external_order_id"}},
			DoUpdates: assignments,
		}).
		Create(order).Error
	if err != nil {
		return nil, err
	}

	return r.FindByVendorAndExternalID(ctx, order.VendorID, order.ExternalOrderID)
}

// ReplaceItems swaps the full item set of an order.
func (r *repository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return conn.Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByVendorAndExternalID(ctx context.Context, vendorID int64, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND external_order_id = ?", vendorID, externalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus sets the internal status and, when provided, the ledger flag.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, ledgerApplied *bool) error {
	updates := map[string]any{"status": status}
	if ledgerApplied != nil {
		updates["ledger_applied"] = *ledgerApplied
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-row lookup failure.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
