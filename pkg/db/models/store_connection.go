package models

import (
	"time"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
)

// StoreConnection links a storefront URL to a vendor. Owned by the connect flow.
type StoreConnection struct {
	ID             int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	VendorID       int64                       `gorm:"column:vendor_id;not null;index"`
	StoreURL       string                      `gorm:"column:store_url;type:varchar(512);not null;index"`
	Platform       enums.Platform              `gorm:"column:platform;type:varchar(32);not null;default:'woocommerce'"`
	Status         enums.StoreConnectionStatus `gorm:"column:status;type:varchar(32);not null;default:'active'"`
	ConsumerKey    *string                     `gorm:"column:consumer_key;type:varchar(255)"`
	ConsumerSecret *string                     `gorm:"column:consumer_secret;type:varchar(255)"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
