package services

import (
	"context"
	"strings"

	"github.com/Josevinuez/trade-in-api/models"
	"gorm.io/gorm"
)

// CustomerSummary is a customer with their order count
type CustomerSummary struct {
	models.Customer
	OrderCount int64 `json:"order_count"`
}

// CustomerService provides staff lookups over customers
type CustomerService struct {
	db *gorm.DB
}

// NewCustomerService creates a new customer service instance
func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// List returns a page of customers, optionally filtered by email or name, newest first
func (s *CustomerService) List(ctx context.Context, search string, page, limit int) ([]models.Customer, int64, error) {
	page, limit = normalizePage(page, limit)

	query := s.db.WithContext(ctx).Model(&models.Customer{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customers []models.Customer
	if err := query.Order("created_at DESC").Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Get returns one customer with their order count
func (s *CustomerService) Get(ctx context.Context, id uint) (*CustomerSummary, error) {
	db := s.db.WithContext(ctx)

	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		return nil, notFoundOr(err, "customer")
	}

	summary := &CustomerSummary{Customer: customer}
	if err := db.Model(&models.TradeInOrder{}).Where("customer_id = ?", id).Count(&summary.OrderCount).Error; err != nil {
		return nil, err
	}
	return summary, nil
}
