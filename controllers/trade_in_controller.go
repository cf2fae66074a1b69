package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/middleware"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

// SubmitTradeInRequest represents the request body for submitting a trade-in order
type SubmitTradeInRequest struct {
	Email         string        `json:"email" binding:"required,email"`
	FirstName     string        `json:"first_name" binding:"required,max=100"`
	LastName      string        `json:"last_name" binding:"required,max=100"`
	Phone         string        `json:"phone" binding:"max=50"`
	AddressLine   string        `json:"address_line" binding:"max=255"`
	City          string        `json:"city" binding:"max=100"`
	State         string        `json:"state" binding:"max=100"`
	PostalCode    string        `json:"postal_code" binding:"max=20"`
	DeviceModelID uint          `json:"device_model_id" binding:"required"`
	Storage       string        `json:"storage" binding:"required"`
	Condition     string        `json:"condition" binding:"required"`
	QuotedAmount  *models.Money `json:"quoted_amount"` // advisory, the server recomputes it
	Notes         string        `json:"notes" binding:"max=2000"`
}

// DecisionRequest represents the customer's answer to a revised price
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve decline"`
	Note     string `json:"note" binding:"max=2000"`
}

// CancelRequest represents an optional cancellation note
type CancelRequest struct {
	Note string `json:"note" binding:"max=2000"`
}

type orderHistoryView struct {
	Status    models.OrderStatus `json:"status"`
	Note      *string            `json:"note"`
	CreatedAt time.Time          `json:"created_at"`
}

// customerOrderView is what the customer of record sees. Staff notes and staff emails are left out.
type customerOrderView struct {
	OrderNumber   string             `json:"order_number"`
	Status        models.OrderStatus `json:"status"`
	Device        string             `json:"device"`
	Storage       string             `json:"storage"`
	Condition     string             `json:"condition"`
	QuotedAmount  models.Money       `json:"quoted_amount"`
	FinalAmount   *models.Money      `json:"final_amount"`
	PaymentMethod *string            `json:"payment_method"`
	CustomerNotes *string            `json:"customer_notes"`
	ProcessedAt   *time.Time         `json:"processed_at"`
	CompletedAt   *time.Time         `json:"completed_at"`
	CreatedAt     time.Time          `json:"created_at"`
	History       []orderHistoryView `json:"history"`
}

func newCustomerOrderView(order *models.TradeInOrder) customerOrderView {
	view := customerOrderView{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		QuotedAmount:  order.QuotedAmount,
		FinalAmount:   order.FinalAmount,
		PaymentMethod: order.PaymentMethod,
		CustomerNotes: order.CustomerNotes,
		ProcessedAt:   order.ProcessedAt,
		CompletedAt:   order.CompletedAt,
		CreatedAt:     order.CreatedAt,
		History:       make([]orderHistoryView, 0, len(order.History)),
	}
	if order.DeviceModel != nil {
		view.Device = order.DeviceModel.Name
		if order.DeviceModel.Brand != nil {
			view.Device = order.DeviceModel.Brand.Name + " " + order.DeviceModel.Name
		}
	}
	if order.StorageOption != nil {
		view.Storage = order.StorageOption.Storage
	}
	if order.Condition != nil {
		view.Condition = order.Condition.Slug
	}
	for _, entry := range order.History {
		view.History = append(view.History, orderHistoryView{
			Status:    entry.Status,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return view
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), services.GetEventPublisher(), services.GetTokenService())
}

// SubmitTradeIn handles POST /api/v1/trade-in - creates a PENDING order and returns its access token
func SubmitTradeIn(c *gin.Context) {
	var req SubmitTradeInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := orderService().Submit(c.Request.Context(), services.SubmitOrderInput{
		Customer: services.CustomerInput{
			Email:       req.Email,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Phone:       req.Phone,
			AddressLine: req.AddressLine,
			City:        req.City,
			State:       req.State,
			PostalCode:  req.PostalCode,
		},
		DeviceModelID: req.DeviceModelID,
		Storage:       req.Storage,
		Condition:     req.Condition,
		QuotedAmount:  req.QuotedAmount,
		CustomerNotes: req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "submit trade-in")
		return
	}

	respondData(c, http.StatusCreated, gin.H{
		"order":          newCustomerOrderView(result.Order),
		"access_token":   result.AccessToken,
		"quote_adjusted": result.QuoteAdjusted,
	})
}

// GetTradeIn handles GET /api/v1/trade-in/:orderNumber - the customer's view of their order
func GetTradeIn(c *gin.Context) {
	if _, err := middleware.GetOrderClaims(c); err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Order access token is required")
		return
	}

	order, err := orderService().GetByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		respondServiceError(c, err, "load order")
		return
	}

	respondData(c, http.StatusOK, newCustomerOrderView(order))
}

// DecideTradeIn handles POST /api/v1/trade-in/:orderNumber/decision - approve or decline a revised price
func DecideTradeIn(c *gin.Context) {
	claims, err := middleware.GetOrderClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Order access token is required")
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := orderService().CustomerDecision(
		c.Request.Context(),
		claims.OrderNumber,
		claims.Email,
		req.Decision == "approve",
		req.Note,
	)
	if err != nil {
		respondServiceError(c, err, "record decision")
		return
	}

	respondData(c, http.StatusOK, newCustomerOrderView(order))
}

// CancelTradeIn handles POST /api/v1/trade-in/:orderNumber/cancel - the body is optional
func CancelTradeIn(c *gin.Context) {
	claims, err := middleware.GetOrderClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Order access token is required")
		return
	}

	var req CancelRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondValidationError(c, err)
			return
		}
	}

	order, err := orderService().CancelByCustomer(c.Request.Context(), claims.OrderNumber, claims.Email, req.Note)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}

	respondData(c, http.StatusOK, newCustomerOrderView(order))
}
