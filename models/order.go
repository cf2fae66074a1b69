package models

import (
	"time"
)

// OrderStatus is a trade-in order lifecycle state
type OrderStatus string

const (
	StatusPending          OrderStatus = "PENDING"
	StatusProcessing       OrderStatus = "PROCESSING"
	StatusAwaitingApproval OrderStatus = "AWAITING_APPROVAL"
	StatusCompleted        OrderStatus = "COMPLETED"
	StatusRejected         OrderStatus = "REJECTED"
	StatusCancelled        OrderStatus = "CANCELLED"
)

// OrderStatuses lists every lifecycle state
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusAwaitingApproval,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// Payment methods offered for settlement
const (
	PaymentPayPal       = "paypal"
	PaymentBankTransfer = "bank_transfer"
	PaymentCheck        = "check"
	PaymentStoreCredit  = "store_credit"
)

// IsValidPaymentMethod reports whether method is a supported payment method
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentPayPal, PaymentBankTransfer, PaymentCheck, PaymentStoreCredit:
		return true
	}
	return false
}

// TradeInOrder is a customer's request to exchange a device for payment.
// QuotedAmount is fixed at submission; FinalAmount, once set, is the settlement value.
type TradeInOrder struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	OrderNumber     string               `gorm:"uniqueIndex;not null;size:64" json:"order_number"`
	CustomerID      uint                 `gorm:"not null;index" json:"customer_id"`
	Customer        *Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DeviceModelID   uint                 `gorm:"not null;index" json:"device_model_id"`
	DeviceModel     *DeviceModel         `gorm:"foreignKey:DeviceModelID" json:"device_model,omitempty"`
	ConditionID     uint                 `gorm:"not null" json:"condition_id"`
	Condition       *Condition           `gorm:"foreignKey:ConditionID" json:"condition,omitempty"`
	StorageOptionID uint                 `gorm:"not null" json:"storage_option_id"`
	StorageOption   *StorageOption       `gorm:"foreignKey:StorageOptionID" json:"storage_option,omitempty"`
	Status          OrderStatus          `gorm:"not null;default:'PENDING';index" json:"status"`
	QuotedAmount    Money                `gorm:"not null" json:"quoted_amount"`
	FinalAmount     *Money               `json:"final_amount"`   // nullable, set by staff after inspection
	PaymentMethod   *string              `json:"payment_method"` // nullable, chosen at settlement
	Notes           *string              `gorm:"type:text" json:"notes"`
	CustomerNotes   *string              `gorm:"type:text" json:"customer_notes"`
	ProcessedAt     *time.Time           `json:"processed_at"`
	CompletedAt     *time.Time           `json:"completed_at"`
	History         []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"history,omitempty"`
	CreatedAt       time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// TableName specifies the table name for the TradeInOrder model
func (TradeInOrder) TableName() string {
	return "trade_in_orders"
}

// OrderStatusHistory is one append-only entry per status change or staff update
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Note      *string     `gorm:"type:text" json:"note"`
	ChangedBy string      `gorm:"not null;default:'system'" json:"changed_by"` // staff email, "customer:<email>" or "system"
	CreatedAt time.Time   `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusHistory model
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
