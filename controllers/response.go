package controllers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/Josevinuez/trade-in-api/services"
	"github.com/Josevinuez/trade-in-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func init() {
	// Unknown JSON fields are a validation error, not silently dropped
	binding.EnableDecoderDisallowUnknownFields = true
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList(c *gin.Context, data interface{}, page, limit int, total int64) {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

func respondError(c *gin.Context, status int, code, message string, details ...interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 && details[0] != nil {
		body["details"] = details[0]
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func respondValidationError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
}

// respondServiceError maps service errors to HTTP statuses. Anything unclassified is logged
// and reported as a generic 500 so database details never reach the client.
func respondServiceError(c *gin.Context, err error, action string) {
	var validationErr *services.ValidationError
	var uploadErr *utils.FileUploadError

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), gin.H{"field": validationErr.Field})
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.Is(err, services.ErrPricingNotConfigured):
		respondError(c, http.StatusNotFound, "PRICING_NOT_CONFIGURED", "No price is configured for this device, storage and condition")
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", capitalize(err.Error()))
	case errors.Is(err, services.ErrConflict):
		respondError(c, http.StatusConflict, "CONFLICT", capitalize(err.Error()))
	case errors.Is(err, services.ErrForbiddenTransition):
		respondError(c, http.StatusForbidden, "FORBIDDEN_TRANSITION", capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", capitalize(err.Error()))
	case errors.Is(err, services.ErrImageStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Image storage is not configured")
	default:
		log.Printf("Failed to %s: %v", action, err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// parseIDParam reads a positive integer path parameter, writing a 400 when it is malformed
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(id), true
}

// pagination reads ?page= and ?limit=, defaulting to 1 and 20
func pagination(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "page must be a positive integer")
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100")
		return 0, 0, false
	}
	return page, limit, true
}
