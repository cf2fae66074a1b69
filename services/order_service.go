package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxOrderNumberAttempts = 5

// NewOrderNumber formats TI-<year>-<unix millis>-<random suffix>
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TI-%d-%d-%s", now.Year(), now.UnixMilli(), suffix)
}

// CustomerInput carries the contact fields submitted with an order
type CustomerInput struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	AddressLine string
	City        string
	State       string
	PostalCode  string
}

// SubmitOrderInput is a customer's trade-in submission
type SubmitOrderInput struct {
	Customer      CustomerInput
	DeviceModelID uint
	Storage       string
	Condition     string
	QuotedAmount  *models.Money // client-supplied, advisory only
	CustomerNotes string
}

// SubmitOrderResult is the created order plus the customer's access token
type SubmitOrderResult struct {
	Order         *models.TradeInOrder
	AccessToken   string
	QuoteAdjusted bool // the client-supplied amount differed from the catalog price
}

// StaffUpdateInput lists the fields staff may change. Nil fields are left untouched.
type StaffUpdateInput struct {
	Status        *models.OrderStatus
	FinalAmount   *models.Money
	Notes         *string
	PaymentMethod *string
	Note          string // history note
}

func (in StaffUpdateInput) isEmpty() bool {
	return in.Status == nil && in.FinalAmount == nil && in.Notes == nil && in.PaymentMethod == nil
}

// OrderFilter narrows the staff order list
type OrderFilter struct {
	Status *models.OrderStatus
	From   *time.Time // inclusive
	To     *time.Time // exclusive
	Page   int
	Limit  int
}

// OrderService owns the trade-in order lifecycle
type OrderService struct {
	db          *gorm.DB
	pricing     *PricingService
	publisher   EventPublisher
	tokens      *TokenService
	now         func() time.Time
	orderNumber func(time.Time) string
}

// NewOrderService creates a new order service instance
func NewOrderService(db *gorm.DB, publisher EventPublisher, tokens *TokenService) *OrderService {
	return &OrderService{
		db:          db,
		pricing:     NewPricingService(db),
		publisher:   publisher,
		tokens:      tokens,
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
}

// Submit creates a PENDING order for the customer, upserting the customer by email.
// The amount is always recomputed from the catalog; a client-supplied amount is only compared.
func (s *OrderService) Submit(ctx context.Context, in SubmitOrderInput) (*SubmitOrderResult, error) {
	email := utils.NormalizeEmail(in.Customer.Email)
	if email == "" {
		return nil, newValidationError("email", "is required")
	}

	var orderID uint
	adjusted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quote, err := s.pricing.quote(tx, QuoteRequest{
			DeviceModelID: in.DeviceModelID,
			Storage:       in.Storage,
			Condition:     in.Condition,
		})
		if err != nil {
			return err
		}
		if in.QuotedAmount != nil && !in.QuotedAmount.Equal(quote.Price.Decimal) {
			adjusted = true
			log.Printf("Client quoted %s for device %d (%s, %s); using catalog price %s",
				in.QuotedAmount.StringFixed(2), quote.DeviceModelID, quote.Storage, quote.Condition, quote.Price.StringFixed(2))
		}

		var condition models.Condition
		if err := tx.Where("slug = ?", quote.Condition).First(&condition).Error; err != nil {
			return notFoundOr(err, "condition")
		}

		customer, err := upsertCustomer(tx, email, in.Customer)
		if err != nil {
			return err
		}

		order := &models.TradeInOrder{
			CustomerID:      customer.ID,
			DeviceModelID:   quote.DeviceModelID,
			ConditionID:     condition.ID,
			StorageOptionID: quote.StorageOptionID,
			Status:          models.StatusPending,
			QuotedAmount:    quote.Price,
		}
		if notes := strings.TrimSpace(in.CustomerNotes); notes != "" {
			order.CustomerNotes = &notes
		}
		if err := s.insertWithUniqueNumber(tx, order); err != nil {
			return err
		}

		orderID = order.ID
		return appendHistory(tx, order.ID, models.StatusPending, "Order submitted", SystemActor())
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := &SubmitOrderResult{Order: order, QuoteAdjusted: adjusted}
	if s.tokens != nil {
		token, err := s.tokens.Issue(order.OrderNumber, email)
		if err != nil {
			return nil, err
		}
		result.AccessToken = token
	}

	publishEvent(ctx, s.publisher, NewOrderEvent(EventOrderSubmitted, order, SystemActor()))
	return result, nil
}

// insertWithUniqueNumber retries with a fresh random suffix when the order number is taken.
// Each attempt runs in a savepoint so a failed insert does not abort the outer transaction.
func (s *OrderService) insertWithUniqueNumber(tx *gorm.DB, order *models.TradeInOrder) error {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.ID = 0
		order.OrderNumber = s.orderNumber(s.now())

		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(order).Error
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		log.Printf("Order number %s already taken, retrying (%d/%d)", order.OrderNumber, attempt, maxOrderNumberAttempts)
	}
	return &ConflictError{Message: "could not allocate a unique order number"}
}

func upsertCustomer(tx *gorm.DB, email string, in CustomerInput) (*models.Customer, error) {
	var customer models.Customer
	err := tx.Where("email = ?", email).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		customer = models.Customer{
			Email:       email,
			FirstName:   strings.TrimSpace(in.FirstName),
			LastName:    strings.TrimSpace(in.LastName),
			Phone:       strings.TrimSpace(in.Phone),
			AddressLine: strings.TrimSpace(in.AddressLine),
			City:        strings.TrimSpace(in.City),
			State:       strings.TrimSpace(in.State),
			PostalCode:  strings.TrimSpace(in.PostalCode),
		}
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&customer).Error
		})
		if createErr == nil {
			return &customer, nil
		}
		if !isUniqueViolation(createErr) {
			return nil, createErr
		}
		// a concurrent submission created the customer first
		err = tx.Where("email = ?", email).First(&customer).Error
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	for column, value := range map[string]string{
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"phone":        in.Phone,
		"address_line": in.AddressLine,
		"city":         in.City,
		"state":        in.State,
		"postal_code":  in.PostalCode,
	} {
		if value = strings.TrimSpace(value); value != "" {
			updates[column] = value
		}
	}
	if len(updates) > 0 {
		if err := tx.Model(&customer).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &customer, nil
}

func appendHistory(tx *gorm.DB, orderID uint, status models.OrderStatus, note string, actor Actor) error {
	entry := models.OrderStatusHistory{
		OrderID:   orderID,
		Status:    status,
		ChangedBy: actor.Label(),
	}
	if note = strings.TrimSpace(note); note != "" {
		entry.Note = &note
	}
	return tx.Create(&entry).Error
}

// stampTransition records processed_at / completed_at the first time those states are entered
func stampTransition(order *models.TradeInOrder, to models.OrderStatus, now time.Time, updates map[string]interface{}) {
	switch to {
	case models.StatusProcessing:
		if order.ProcessedAt == nil {
			updates["processed_at"] = now
		}
	case models.StatusCompleted:
		if order.CompletedAt == nil {
			updates["completed_at"] = now
		}
	}
}

func withOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("DeviceModel.Brand").
		Preload("DeviceModel.Category").
		Preload("Condition").
		Preload("StorageOption").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// Get returns one order with its customer, device, condition, storage option and history
func (s *OrderService) Get(ctx context.Context, id uint) (*models.TradeInOrder, error) {
	var order models.TradeInOrder
	if err := withOrderDetails(s.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// GetByNumber looks an order up by its public order number
func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*models.TradeInOrder, error) {
	var order models.TradeInOrder
	if err := withOrderDetails(s.db.WithContext(ctx)).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// History returns the order's history, oldest first
func (s *OrderService) History(ctx context.Context, id uint) ([]models.OrderStatusHistory, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.TradeInOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &NotFoundError{Entity: "order"}
	}

	var history []models.OrderStatusHistory
	if err := db.Where("order_id = ?", id).Order("id ASC").Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// List returns a page of orders, newest first, and the total matching count
func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.TradeInOrder, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	query := s.db.WithContext(ctx).Model(&models.TradeInOrder{})
	if f.Status != nil {
		if !f.Status.IsValid() {
			return nil, 0, newValidationError("status", fmt.Sprintf("unknown status %q", *f.Status))
		}
		query = query.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.TradeInOrder
	if err := query.
		Preload("Customer").
		Preload("DeviceModel").
		Preload("Condition").
		Preload("StorageOption").
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CountByStatus returns the number of orders in every status, zeros included
func (s *OrderService) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.TradeInOrder{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.OrderStatus]int64, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// UpdateByStaff applies a staff update and appends exactly one history row
func (s *OrderService) UpdateByStaff(ctx context.Context, id uint, in StaffUpdateInput, actor Actor) (*models.TradeInOrder, error) {
	if in.isEmpty() {
		return nil, newValidationError("body", "no fields to update")
	}
	if in.FinalAmount != nil && in.FinalAmount.IsNegative() {
		return nil, newValidationError("final_amount", "must not be negative")
	}
	if in.PaymentMethod != nil && !models.IsValidPaymentMethod(*in.PaymentMethod) {
		return nil, newValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", *in.PaymentMethod))
	}

	var previous models.OrderStatus
	statusChanged := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.TradeInOrder
		if err := tx.First(&order, id).Error; err != nil {
			return notFoundOr(err, "order")
		}
		previous = order.Status
		if err := checkSettlementEdit(order.Status, in); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		var changed []string
		target := order.Status

		if in.Status != nil && *in.Status != order.Status {
			if err := CheckTransition(order.Status, *in.Status, actor); err != nil {
				return err
			}
			target = *in.Status
			statusChanged = true
			updates["status"] = target
			stampTransition(&order, target, s.now(), updates)
		}

		if statusChanged && target == models.StatusAwaitingApproval && in.FinalAmount == nil && order.FinalAmount == nil {
			return newValidationError("final_amount", "is required when sending a revised price")
		}

		if in.FinalAmount != nil {
			updates["final_amount"] = *in.FinalAmount
			changed = append(changed, "final_amount")
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
			changed = append(changed, "notes")
		}
		if in.PaymentMethod != nil {
			updates["payment_method"] = *in.PaymentMethod
			changed = append(changed, "payment_method")
		}

		if len(updates) > 0 {
			if err := tx.Model(&order).Updates(updates).Error; err != nil {
				return err
			}
		}

		note := in.Note
		if strings.TrimSpace(note) == "" && !statusChanged && len(changed) > 0 {
			note = "Updated " + strings.Join(changed, ", ")
		}
		return appendHistory(tx, order.ID, target, note, actor)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	event := NewOrderEvent(EventOrderUpdated, order, actor)
	if statusChanged {
		event.Type = EventOrderStatusChanged
		event.PreviousStatus = previous
	}
	publishEvent(ctx, s.publisher, event)
	return order, nil
}

// checkSettlementEdit guards final_amount and payment_method. A final amount is
// only set while the device is being assessed, which includes the request that
// sends the revised price; once the customer holds an offer it is frozen.
func checkSettlementEdit(current models.OrderStatus, in StaffUpdateInput) error {
	if current.IsTerminal() && (in.FinalAmount != nil || in.PaymentMethod != nil) {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, current)
	}
	if in.FinalAmount != nil && current != models.StatusPending && current != models.StatusProcessing {
		return fmt.Errorf("%w: final_amount cannot change while order is %s", ErrInvalidTransition, current)
	}
	return nil
}

// CustomerDecision answers a revised price: approve moves the order back to PROCESSING, decline rejects it
func (s *OrderService) CustomerDecision(ctx context.Context, orderNumber, email string, approve bool, note string) (*models.TradeInOrder, error) {
	to := models.StatusRejected
	if approve {
		to = models.StatusProcessing
	}
	return s.customerTransition(ctx, orderNumber, email, to, note, true)
}

// CancelByCustomer cancels a non-terminal order on behalf of its customer
func (s *OrderService) CancelByCustomer(ctx context.Context, orderNumber, email, note string) (*models.TradeInOrder, error) {
	return s.customerTransition(ctx, orderNumber, email, models.StatusCancelled, note, false)
}

func (s *OrderService) customerTransition(ctx context.Context, orderNumber, email string, to models.OrderStatus, note string, decision bool) (*models.TradeInOrder, error) {
	actor := CustomerActor(utils.NormalizeEmail(email))

	var orderID uint
	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.TradeInOrder
		if err := tx.Preload("Customer").Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
			return notFoundOr(err, "order")
		}
		if order.Customer == nil || !strings.EqualFold(order.Customer.Email, actor.Email) {
			return fmt.Errorf("%w: caller is not the customer of record", ErrForbiddenTransition)
		}
		if decision && order.Status != models.StatusAwaitingApproval {
			return fmt.Errorf("%w: order is %s, not awaiting approval", ErrInvalidTransition, order.Status)
		}
		if err := CheckTransition(order.Status, to, actor); err != nil {
			return err
		}

		orderID = order.ID
		previous = order.Status
		updates := map[string]interface{}{"status": to}
		stampTransition(&order, to, s.now(), updates)
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		return appendHistory(tx, order.ID, to, note, actor)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	event := NewOrderEvent(EventOrderStatusChanged, order, actor)
	event.PreviousStatus = previous
	publishEvent(ctx, s.publisher, event)
	return order, nil
}

// Delete removes an order and its history. History rows go first to satisfy the foreign key.
func (s *OrderService) Delete(ctx context.Context, id uint, actor Actor) error {
	var order models.TradeInOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return notFoundOr(err, "order")
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}

	publishEvent(ctx, s.publisher, NewOrderEvent(EventOrderDeleted, &order, actor))
	return nil
}

// normalizePage clamps pagination to page >= 1 and 1..100 items
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
