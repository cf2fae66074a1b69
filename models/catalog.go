package models

import (
	"time"
)

// Condition tiers. They double as the price column selector on StorageOption.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// ConditionSlugs lists the tiers from best to worst
var ConditionSlugs = []string{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

// IsValidCondition reports whether slug is a known condition tier
func IsValidCondition(slug string) bool {
	for _, s := range ConditionSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Category groups device models (smartphones, tablets, laptops...)
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// Brand is a device manufacturer
type Brand struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Brand model
func (Brand) TableName() string {
	return "brands"
}

// Condition is a device quality tier shown to customers
type Condition struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
}

// TableName specifies the table name for the Condition model
func (Condition) TableName() string {
	return "conditions"
}

// DeviceModel is a tradeable device. Models referenced by orders are deactivated, never deleted.
type DeviceModel struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"not null;index" json:"name"`
	CategoryID     uint            `gorm:"not null;index" json:"category_id"`
	Category       *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	BrandID        uint            `gorm:"not null;index" json:"brand_id"`
	Brand          *Brand          `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	ReleaseYear    int             `json:"release_year"`
	ImageKey       *string         `json:"image_key"`                    // nullable, S3 key of the device photo
	ImageURL       *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	Active         bool            `gorm:"not null;default:true;index" json:"active"`
	StorageOptions []StorageOption `gorm:"foreignKey:DeviceModelID" json:"storage_options,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the DeviceModel model
func (DeviceModel) TableName() string {
	return "device_models"
}

// StorageOption is a capacity variant of a device model with one absolute price per condition tier.
// Labels are stored upper-cased and at most one active option exists per (device model, storage label).
type StorageOption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeviceModelID  uint      `gorm:"not null;index;uniqueIndex:idx_storage_active,where:active = true" json:"device_model_id"`
	Storage        string    `gorm:"not null;uniqueIndex:idx_storage_active,where:active = true" json:"storage"`
	PriceExcellent *Money    `json:"price_excellent"`
	PriceGood      *Money    `json:"price_good"`
	PriceFair      *Money    `json:"price_fair"`
	PricePoor      *Money    `json:"price_poor"`
	Active         bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for the StorageOption model
func (StorageOption) TableName() string {
	return "storage_options"
}

// PriceFor returns the configured price for a condition tier
func (s StorageOption) PriceFor(condition string) (*Money, bool) {
	var price *Money
	switch condition {
	case ConditionExcellent:
		price = s.PriceExcellent
	case ConditionGood:
		price = s.PriceGood
	case ConditionFair:
		price = s.PriceFair
	case ConditionPoor:
		price = s.PricePoor
	}
	return price, price != nil
}
