package services

import (
	"context"
	"strings"

	"github.com/Josevinuez/trade-in-api/models"
	"gorm.io/gorm"
)

// QuoteRequest identifies the device being priced
type QuoteRequest struct {
	DeviceModelID uint
	Storage       string
	Condition     string
}

// Quote is the price offered for a (device model, storage, condition) triple
type Quote struct {
	DeviceModelID   uint         `json:"device_model_id"`
	DeviceName      string       `json:"device_name"`
	StorageOptionID uint         `json:"storage_option_id"`
	Storage         string       `json:"storage"`
	Condition       string       `json:"condition"`
	Price           models.Money `json:"price"`
}

// PricingService computes quotes from the per-storage condition prices
type PricingService struct {
	db *gorm.DB
}

// NewPricingService creates a new pricing service instance
func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// Quote returns exactly the stored price for the condition tier.
// A tier without a price yields ErrPricingNotConfigured rather than zero.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	return s.quote(s.db.WithContext(ctx), req)
}

func (s *PricingService) quote(db *gorm.DB, req QuoteRequest) (*Quote, error) {
	condition := strings.ToLower(strings.TrimSpace(req.Condition))
	if !models.IsValidCondition(condition) {
		return nil, newValidationError("condition", "must be one of "+strings.Join(models.ConditionSlugs, ", "))
	}
	storage := strings.TrimSpace(req.Storage)
	if storage == "" {
		return nil, newValidationError("storage", "is required")
	}
	if req.DeviceModelID == 0 {
		return nil, newValidationError("device_model_id", "is required")
	}

	var device models.DeviceModel
	if err := db.Where("id = ? AND active = ?", req.DeviceModelID, true).First(&device).Error; err != nil {
		return nil, notFoundOr(err, "device model")
	}

	var option models.StorageOption
	if err := db.
		Where("device_model_id = ? AND UPPER(storage) = ? AND active = ?", device.ID, strings.ToUpper(storage), true).
		First(&option).Error; err != nil {
		return nil, notFoundOr(err, "storage option")
	}

	price, ok := option.PriceFor(condition)
	if !ok || price.IsNegative() {
		return nil, ErrPricingNotConfigured
	}

	return &Quote{
		DeviceModelID:   device.ID,
		DeviceName:      device.Name,
		StorageOptionID: option.ID,
		Storage:         option.Storage,
		Condition:       condition,
		Price:           models.NewMoney(price.Decimal),
	}, nil
}
