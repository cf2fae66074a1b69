package controllers

import (
	"net/http"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), services.GetImageService())
}

// ListCategories handles GET /api/v1/categories
func ListCategories(c *gin.Context) {
	categories, err := catalogService().ListCategories(c.Request.Context(), false)
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	respondData(c, http.StatusOK, categories)
}

// ListBrands handles GET /api/v1/brands
func ListBrands(c *gin.Context) {
	brands, err := catalogService().ListBrands(c.Request.Context(), false)
	if err != nil {
		respondServiceError(c, err, "list brands")
		return
	}
	respondData(c, http.StatusOK, brands)
}

// ListConditions handles GET /api/v1/conditions
func ListConditions(c *gin.Context) {
	conditions, err := catalogService().ListConditions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list conditions")
		return
	}
	respondData(c, http.StatusOK, conditions)
}

// ListDevices handles GET /api/v1/devices?category=&brand=&q=
func ListDevices(c *gin.Context) {
	devices, err := catalogService().ListDevices(c.Request.Context(), services.DeviceFilter{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Query:    c.Query("q"),
	})
	if err != nil {
		respondServiceError(c, err, "list devices")
		return
	}
	respondData(c, http.StatusOK, devices)
}

// GetDevice handles GET /api/v1/devices/:id - an active device with its active storage options
func GetDevice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	device, err := catalogService().GetDevice(c.Request.Context(), id, false)
	if err != nil {
		respondServiceError(c, err, "load device")
		return
	}
	respondData(c, http.StatusOK, device)
}
