package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
)

// Repository manages vendor balances and the wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockVendor(ctx context.Context, vendorID int64) (*models.Vendor, error)
	FindVendor(ctx context.Context, vendorID int64) (*models.Vendor, error)
	UpdateBalance(ctx context.Context, vendorID int64, balance decimal.Decimal) error
	FindEntryByOrder(ctx context.Context, orderID uuid.UUID) (*models.WalletLedgerEntry, error)
	CreateEntry(ctx context.Context, entry *models.WalletLedgerEntry) error
	ListEntriesByVendor(ctx context.Context, vendorID int64) ([]models.WalletLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockVendor reads the vendor row FOR UPDATE. It returns nil without error
// when the vendor does not exist.
func (r *repository) LockVendor(ctx context.Context, vendorID int64) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", vendorID).
		First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindVendor(ctx context.Context, vendorID int64) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", vendorID).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) UpdateBalance(ctx context.Context, vendorID int64, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Update("wallet_balance", balance).Error
}

// FindEntryByOrder returns nil without error when the order was never debited.
func (r *repository) FindEntryByOrder(ctx context.Context, orderID uuid.UUID) (*models.WalletLedgerEntry, error) {
	var entry models.WalletLedgerEntry
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.WalletLedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntriesByVendor(ctx context.Context, vendorID int64) ([]models.WalletLedgerEntry, error) {
	var entries []models.WalletLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
