package controllers

import (
	"net/http"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

// QuoteRequest represents the request body for a price quote
type QuoteRequest struct {
	DeviceModelID uint   `json:"device_model_id" binding:"required"`
	Storage       string `json:"storage" binding:"required"`
	Condition     string `json:"condition" binding:"required"`
}

// CreateQuote handles POST /api/v1/quotes - prices a (device, storage, condition) triple
func CreateQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	quote, err := services.NewPricingService(config.GetDB()).Quote(c.Request.Context(), services.QuoteRequest{
		DeviceModelID: req.DeviceModelID,
		Storage:       req.Storage,
		Condition:     req.Condition,
	})
	if err != nil {
		respondServiceError(c, err, "calculate quote")
		return
	}

	respondData(c, http.StatusOK, quote)
}
