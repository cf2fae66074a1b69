package controllers

import (
	"net/http"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

// CreateNamedRequest is the body for creating a category or brand
type CreateNamedRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Slug string `json:"slug" binding:"max=100"`
}

// CreateDeviceRequest represents the request body for creating a device model
type CreateDeviceRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	CategoryID  uint   `json:"category_id" binding:"required"`
	BrandID     uint   `json:"brand_id" binding:"required"`
	ReleaseYear int    `json:"release_year"`
}

// UpdateDeviceRequest represents the request body for updating a device model
type UpdateDeviceRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	CategoryID  *uint   `json:"category_id"`
	BrandID     *uint   `json:"brand_id"`
	ReleaseYear *int    `json:"release_year"`
	Active      *bool   `json:"active"`
}

// StorageOptionRequest represents the request body for creating a storage option
type StorageOptionRequest struct {
	Storage        string        `json:"storage" binding:"required,max=50"`
	PriceExcellent *models.Money `json:"price_excellent"`
	PriceGood      *models.Money `json:"price_good"`
	PriceFair      *models.Money `json:"price_fair"`
	PricePoor      *models.Money `json:"price_poor"`
}

// UpdateStorageOptionRequest represents the request body for updating a storage option
type UpdateStorageOptionRequest struct {
	Storage        *string       `json:"storage" binding:"omitempty,max=50"`
	PriceExcellent *models.Money `json:"price_excellent"`
	PriceGood      *models.Money `json:"price_good"`
	PriceFair      *models.Money `json:"price_fair"`
	PricePoor      *models.Money `json:"price_poor"`
	Active         *bool         `json:"active"`
}

// StaffListCategories handles GET /api/v1/staff/categories - includes inactive ones
func StaffListCategories(c *gin.Context) {
	categories, err := catalogService().ListCategories(c.Request.Context(), true)
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	respondData(c, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/staff/categories
func CreateCategory(c *gin.Context) {
	var req CreateNamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	category, err := catalogService().CreateCategory(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondServiceError(c, err, "create category")
		return
	}
	respondData(c, http.StatusCreated, category)
}

// StaffListBrands handles GET /api/v1/staff/brands - includes inactive ones
func StaffListBrands(c *gin.Context) {
	brands, err := catalogService().ListBrands(c.Request.Context(), true)
	if err != nil {
		respondServiceError(c, err, "list brands")
		return
	}
	respondData(c, http.StatusOK, brands)
}

// CreateBrand handles POST /api/v1/staff/brands
func CreateBrand(c *gin.Context) {
	var req CreateNamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	brand, err := catalogService().CreateBrand(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondServiceError(c, err, "create brand")
		return
	}
	respondData(c, http.StatusCreated, brand)
}

// StaffListDevices handles GET /api/v1/staff/devices - includes inactive models
func StaffListDevices(c *gin.Context) {
	devices, err := catalogService().ListDevices(c.Request.Context(), services.DeviceFilter{
		Category:        c.Query("category"),
		Brand:           c.Query("brand"),
		Query:           c.Query("q"),
		IncludeInactive: true,
	})
	if err != nil {
		respondServiceError(c, err, "list devices")
		return
	}
	respondData(c, http.StatusOK, devices)
}

// StaffGetDevice handles GET /api/v1/staff/devices/:id - includes inactive storage options
func StaffGetDevice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	device, err := catalogService().GetDevice(c.Request.Context(), id, true)
	if err != nil {
		respondServiceError(c, err, "load device")
		return
	}
	respondData(c, http.StatusOK, device)
}

// CreateDevice handles POST /api/v1/staff/devices
func CreateDevice(c *gin.Context) {
	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	device, err := catalogService().CreateDevice(c.Request.Context(), services.DeviceInput{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		ReleaseYear: req.ReleaseYear,
	})
	if err != nil {
		respondServiceError(c, err, "create device")
		return
	}
	respondData(c, http.StatusCreated, device)
}

// UpdateDevice handles PUT /api/v1/staff/devices/:id
func UpdateDevice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	device, err := catalogService().UpdateDevice(c.Request.Context(), id, services.DeviceUpdate{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		ReleaseYear: req.ReleaseYear,
		Active:      req.Active,
	})
	if err != nil {
		respondServiceError(c, err, "update device")
		return
	}
	respondData(c, http.StatusOK, device)
}

// DeactivateDevice handles DELETE /api/v1/staff/devices/:id - devices are deactivated, never removed
func DeactivateDevice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := catalogService().DeactivateDevice(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "deactivate device")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "active": false})
}

// UploadDeviceImage handles POST /api/v1/staff/devices/:id/image - multipart field "image"
func UploadDeviceImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" form field")
		return
	}

	device, err := catalogService().SetDeviceImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, err, "upload device image")
		return
	}
	respondData(c, http.StatusOK, device)
}

// CreateStorageOption handles POST /api/v1/staff/devices/:id/storage-options
func CreateStorageOption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req StorageOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	option, err := catalogService().CreateStorageOption(c.Request.Context(), id, services.StorageOptionInput{
		Storage:        req.Storage,
		PriceExcellent: req.PriceExcellent,
		PriceGood:      req.PriceGood,
		PriceFair:      req.PriceFair,
		PricePoor:      req.PricePoor,
	})
	if err != nil {
		respondServiceError(c, err, "create storage option")
		return
	}
	respondData(c, http.StatusCreated, option)
}

// UpdateStorageOption handles PUT /api/v1/staff/storage-options/:id
func UpdateStorageOption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStorageOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	option, err := catalogService().UpdateStorageOption(c.Request.Context(), id, services.StorageOptionUpdate{
		Storage:        req.Storage,
		PriceExcellent: req.PriceExcellent,
		PriceGood:      req.PriceGood,
		PriceFair:      req.PriceFair,
		PricePoor:      req.PricePoor,
		Active:         req.Active,
	})
	if err != nil {
		respondServiceError(c, err, "update storage option")
		return
	}
	respondData(c, http.StatusOK, option)
}

// DeactivateStorageOption handles DELETE /api/v1/staff/storage-options/:id
func DeactivateStorageOption(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := catalogService().DeactivateStorageOption(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "deactivate storage option")
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "active": false})
}
