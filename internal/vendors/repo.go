package vendors

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// Repository reads the vendor directory. Store connections and vendors are
// owned by the connect flow; nothing here writes them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendorByID(ctx context.Context, id int64) (*models.Vendor, error)
	FindActiveConnectionByURL(ctx context.Context, normalizedURL string) (*models.StoreConnection, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a vendor directory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindVendorByID returns nil without error when no vendor has the id.
func (r *repository) FindVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

// FindActiveConnectionByURL matches rows stored with or without a trailing slash.
// It returns nil without error when nothing matches.
func (r *repository) FindActiveConnectionByURL(ctx context.Context, normalizedURL string) (*models.StoreConnection, error) {
	normalizedURL = strings.TrimRight(strings.ToLower(normalizedURL), "/")
	var conn models.StoreConnection
	err := r.db.WithContext(ctx).
		Where("LOWER(store_url) IN ? AND status = ?", []string{normalizedURL, normalizedURL + "/"}, enums.StoreConnectionActive).
		Order("id ASC").
		First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}
