package controllers

import (
	"net/http"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/middleware"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

// UpdateOrderRequest represents the staff PATCH body. Omitted fields are left untouched.
type UpdateOrderRequest struct {
	Status        *models.OrderStatus `json:"status"`
	FinalAmount   *models.Money       `json:"final_amount"`
	Notes         *string             `json:"notes" binding:"omitempty,max=5000"`
	PaymentMethod *string             `json:"payment_method" binding:"omitempty,oneof=paypal bank_transfer check store_credit"`
	Note          string              `json:"note" binding:"max=2000"` // recorded on the history row
}

// staffActor returns the audit identity of the authorized staff member
func staffActor(c *gin.Context) (services.Actor, bool) {
	member, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Staff identity not found")
		return services.Actor{}, false
	}
	return services.StaffActor(member.Email), true
}

// parseDateQuery accepts RFC 3339 timestamps or plain dates (2024-05-01).
// With wholeDay a plain date means the end of that day, so ?to=2024-05-01 includes May 1st.
func parseDateQuery(c *gin.Context, name string, wholeDay bool) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if wholeDay {
			t = t.AddDate(0, 0, 1)
		}
		return &t, true
	}
	respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	return nil, false
}

// ListOrders handles GET /api/v1/staff/orders?status=&from=&to=&page=&limit=
func ListOrders(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	from, ok := parseDateQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to", true)
	if !ok {
		return
	}

	filter := services.OrderFilter{From: from, To: to, Page: page, Limit: limit}
	if status := c.Query("status"); status != "" {
		s := models.OrderStatus(status)
		filter.Status = &s
	}

	orders, total, err := orderService().List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}

	respondList(c, orders, page, limit, total)
}

// GetOrder handles GET /api/v1/staff/orders/:id
func GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := orderService().Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "load order")
		return
	}
	respondData(c, http.StatusOK, order)
}

// GetOrderHistory handles GET /api/v1/staff/orders/:id/history - oldest first
func GetOrderHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := orderService().History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "load order history")
		return
	}
	respondData(c, http.StatusOK, history)
}

// UpdateOrder handles PATCH /api/v1/staff/orders/:id
func UpdateOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := staffActor(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := orderService().UpdateByStaff(c.Request.Context(), id, services.StaffUpdateInput{
		Status:        req.Status,
		FinalAmount:   req.FinalAmount,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}, actor)
	if err != nil {
		respondServiceError(c, err, "update order")
		return
	}
	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/staff/orders/:id - removes the order and its history
func DeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := staffActor(c)
	if !ok {
		return
	}

	if err := orderService().Delete(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err, "delete order")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// GetStats handles GET /api/v1/staff/stats - order counts per status
func GetStats(c *gin.Context) {
	counts, err := orderService().CountByStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "load stats")
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	respondData(c, http.StatusOK, gin.H{
		"orders_by_status": counts,
		"total_orders":     total,
	})
}

// ListCustomers handles GET /api/v1/staff/customers?q=&page=&limit=
func ListCustomers(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}

	customers, total, err := services.NewCustomerService(config.GetDB()).List(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		respondServiceError(c, err, "list customers")
		return
	}
	respondList(c, customers, page, limit, total)
}

// GetCustomer handles GET /api/v1/staff/customers/:id
func GetCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	customer, err := services.NewCustomerService(config.GetDB()).Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "load customer")
		return
	}
	respondData(c, http.StatusOK, customer)
}
