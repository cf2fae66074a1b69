package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/utils"
	"gorm.io/gorm"
)

// ErrImageStorageDisabled is returned by image uploads when no S3 bucket is configured
var ErrImageStorageDisabled = errors.New("image storage is not configured")

// DeviceFilter narrows the device list
type DeviceFilter struct {
	Category        string // category slug
	Brand           string // brand slug
	Query           string // case-insensitive name match
	IncludeInactive bool
}

// DeviceInput creates a device model
type DeviceInput struct {
	Name        string
	CategoryID  uint
	BrandID     uint
	ReleaseYear int
}

// DeviceUpdate changes a device model. Nil fields are left untouched.
type DeviceUpdate struct {
	Name        *string
	CategoryID  *uint
	BrandID     *uint
	ReleaseYear *int
	Active      *bool
}

// StorageOptionInput creates a storage option. A nil price leaves that tier unpriced.
type StorageOptionInput struct {
	Storage        string
	PriceExcellent *models.Money
	PriceGood      *models.Money
	PriceFair      *models.Money
	PricePoor      *models.Money
}

// StorageOptionUpdate changes a storage option. Nil fields are left untouched.
type StorageOptionUpdate struct {
	Storage        *string
	PriceExcellent *models.Money
	PriceGood      *models.Money
	PriceFair      *models.Money
	PricePoor      *models.Money
	Active         *bool
}

// CatalogService manages categories, brands, conditions, devices and their storage options
type CatalogService struct {
	db     *gorm.DB
	images ImageService
}

// NewCatalogService creates a catalog service. images may be nil when S3 is not configured.
func NewCatalogService(db *gorm.DB, images ImageService) *CatalogService {
	return &CatalogService{db: db, images: images}
}

// ListCategories returns categories by name
func (s *CatalogService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory adds a category. The slug is derived from the name when empty.
func (s *CatalogService) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	name, slug, err := nameAndSlug(name, slug)
	if err != nil {
		return nil, err
	}

	category := models.Category{Name: name, Slug: slug, Active: true}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("category %q already exists", name)}
		}
		return nil, err
	}
	return &category, nil
}

// ListBrands returns brands by name
func (s *CatalogService) ListBrands(ctx context.Context, includeInactive bool) ([]models.Brand, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var brands []models.Brand
	if err := query.Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// CreateBrand adds a brand. The slug is derived from the name when empty.
func (s *CatalogService) CreateBrand(ctx context.Context, name, slug string) (*models.Brand, error) {
	name, slug, err := nameAndSlug(name, slug)
	if err != nil {
		return nil, err
	}

	brand := models.Brand{Name: name, Slug: slug, Active: true}
	if err := s.db.WithContext(ctx).Create(&brand).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("brand %q already exists", name)}
		}
		return nil, err
	}
	return &brand, nil
}

func nameAndSlug(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", newValidationError("name", "is required")
	}
	if slug = utils.Slugify(slug); slug == "" {
		slug = utils.Slugify(name)
	}
	if slug == "" {
		return "", "", newValidationError("slug", "must contain letters or digits")
	}
	return name, slug, nil
}

// ListConditions returns the condition tiers, best first
func (s *CatalogService) ListConditions(ctx context.Context) ([]models.Condition, error) {
	var conditions []models.Condition
	if err := s.db.WithContext(ctx).Order("sort_order ASC").Find(&conditions).Error; err != nil {
		return nil, err
	}
	return conditions, nil
}

// ListDevices returns device models with their brand, category and active storage options
func (s *CatalogService) ListDevices(ctx context.Context, f DeviceFilter) ([]models.DeviceModel, error) {
	query := s.db.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Preload("Category").
		Preload("Brand").
		Preload("StorageOptions", func(db *gorm.DB) *gorm.DB {
			return db.Where("active = ?", true).Order("id ASC")
		})

	if !f.IncludeInactive {
		query = query.Where("device_models.active = ?", true)
	}
	if f.Category != "" {
		query = query.
			Joins("JOIN categories ON categories.id = device_models.category_id").
			Where("categories.slug = ?", strings.ToLower(f.Category))
	}
	if f.Brand != "" {
		query = query.
			Joins("JOIN brands ON brands.id = device_models.brand_id").
			Where("brands.slug = ?", strings.ToLower(f.Brand))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		query = query.Where("LOWER(device_models.name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var devices []models.DeviceModel
	if err := query.Order("device_models.name ASC").Find(&devices).Error; err != nil {
		return nil, err
	}
	for i := range devices {
		s.attachImageURL(ctx, &devices[i])
	}
	return devices, nil
}

// GetDevice returns one device model. Inactive models are hidden unless includeInactive is set.
func (s *CatalogService) GetDevice(ctx context.Context, id uint, includeInactive bool) (*models.DeviceModel, error) {
	query := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Brand").
		Preload("StorageOptions", func(db *gorm.DB) *gorm.DB {
			if includeInactive {
				return db.Order("id ASC")
			}
			return db.Where("active = ?", true).Order("id ASC")
		})
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var device models.DeviceModel
	if err := query.First(&device, id).Error; err != nil {
		return nil, notFoundOr(err, "device model")
	}
	s.attachImageURL(ctx, &device)
	return &device, nil
}

// CreateDevice adds a device model under an existing category and brand
func (s *CatalogService) CreateDevice(ctx context.Context, in DeviceInput) (*models.DeviceModel, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newValidationError("name", "is required")
	}
	if err := validateReleaseYear(in.ReleaseYear); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := ensureExists(db, &models.Category{}, in.CategoryID, "category"); err != nil {
		return nil, err
	}
	if err := ensureExists(db, &models.Brand{}, in.BrandID, "brand"); err != nil {
		return nil, err
	}

	device := models.DeviceModel{
		Name:        name,
		CategoryID:  in.CategoryID,
		BrandID:     in.BrandID,
		ReleaseYear: in.ReleaseYear,
		Active:      true,
	}
	if err := db.Create(&device).Error; err != nil {
		return nil, err
	}
	return s.GetDevice(ctx, device.ID, true)
}

// UpdateDevice changes a device model
func (s *CatalogService) UpdateDevice(ctx context.Context, id uint, in DeviceUpdate) (*models.DeviceModel, error) {
	db := s.db.WithContext(ctx)

	var device models.DeviceModel
	if err := db.First(&device, id).Error; err != nil {
		return nil, notFoundOr(err, "device model")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, newValidationError("name", "must not be empty")
		}
		updates["name"] = name
	}
	if in.CategoryID != nil {
		if err := ensureExists(db, &models.Category{}, *in.CategoryID, "category"); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}
	if in.BrandID != nil {
		if err := ensureExists(db, &models.Brand{}, *in.BrandID, "brand"); err != nil {
			return nil, err
		}
		updates["brand_id"] = *in.BrandID
	}
	if in.ReleaseYear != nil {
		if err := validateReleaseYear(*in.ReleaseYear); err != nil {
			return nil, err
		}
		updates["release_year"] = *in.ReleaseYear
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if len(updates) == 0 {
		return nil, newValidationError("body", "no fields to update")
	}

	if err := db.Model(&device).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetDevice(ctx, id, true)
}

// DeactivateDevice hides a device model from the public catalog. Orders keep referencing it.
func (s *CatalogService) DeactivateDevice(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.DeviceModel{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "device model"}
	}
	return nil
}

// SetDeviceImage uploads a new photo for the device and replaces the previous one
func (s *CatalogService) SetDeviceImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.DeviceModel, error) {
	if s.images == nil {
		return nil, ErrImageStorageDisabled
	}

	db := s.db.WithContext(ctx)
	var device models.DeviceModel
	if err := db.First(&device, id).Error; err != nil {
		return nil, notFoundOr(err, "device model")
	}

	imageKey, err := s.images.UploadDeviceImage(ctx, device.ID, fileHeader)
	if err != nil {
		return nil, err
	}

	if err := db.Model(&device).Update("image_key", imageKey).Error; err != nil {
		return nil, err
	}

	if device.ImageKey != nil && *device.ImageKey != imageKey {
		if err := s.images.DeleteImage(ctx, *device.ImageKey); err != nil {
			log.Printf("Failed to delete previous image %s for device %d: %v", *device.ImageKey, device.ID, err)
		}
	}

	return s.GetDevice(ctx, id, true)
}

func (s *CatalogService) attachImageURL(ctx context.Context, device *models.DeviceModel) {
	if s.images == nil || device.ImageKey == nil || *device.ImageKey == "" {
		return
	}
	url, err := s.images.GetImageURL(ctx, *device.ImageKey)
	if err != nil {
		log.Printf("Failed to generate image URL for device %d: %v", device.ID, err)
		return
	}
	device.ImageURL = &url
}

// CreateStorageOption adds a priced storage variant to a device model
func (s *CatalogService) CreateStorageOption(ctx context.Context, deviceID uint, in StorageOptionInput) (*models.StorageOption, error) {
	storage := normalizeStorageLabel(in.Storage)
	if storage == "" {
		return nil, newValidationError("storage", "is required")
	}
	if err := validatePrices(in.PriceExcellent, in.PriceGood, in.PriceFair, in.PricePoor); err != nil {
		return nil, err
	}

	option := models.StorageOption{
		DeviceModelID:  deviceID,
		Storage:        storage,
		PriceExcellent: roundedPrice(in.PriceExcellent),
		PriceGood:      roundedPrice(in.PriceGood),
		PriceFair:      roundedPrice(in.PriceFair),
		PricePoor:      roundedPrice(in.PricePoor),
		Active:         true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.DeviceModel{}, deviceID, "device model"); err != nil {
			return err
		}
		if err := ensureStorageLabelFree(tx, deviceID, storage, 0); err != nil {
			return err
		}
		if err := tx.Create(&option).Error; err != nil {
			if isUniqueViolation(err) {
				return storageConflict(storage)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &option, nil
}

// UpdateStorageOption changes a storage option's label, prices or active flag
func (s *CatalogService) UpdateStorageOption(ctx context.Context, id uint, in StorageOptionUpdate) (*models.StorageOption, error) {
	if err := validatePrices(in.PriceExcellent, in.PriceGood, in.PriceFair, in.PricePoor); err != nil {
		return nil, err
	}

	var option models.StorageOption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&option, id).Error; err != nil {
			return notFoundOr(err, "storage option")
		}

		updates := map[string]interface{}{}
		storage := option.Storage
		if in.Storage != nil {
			storage = normalizeStorageLabel(*in.Storage)
			if storage == "" {
				return newValidationError("storage", "must not be empty")
			}
			updates["storage"] = storage
		}
		active := option.Active
		if in.Active != nil {
			active = *in.Active
			updates["active"] = active
		}
		for column, price := range map[string]*models.Money{
			"price_excellent": in.PriceExcellent,
			"price_good":      in.PriceGood,
			"price_fair":      in.PriceFair,
			"price_poor":      in.PricePoor,
		} {
			if price != nil {
				updates[column] = *roundedPrice(price)
			}
		}
		if len(updates) == 0 {
			return newValidationError("body", "no fields to update")
		}

		if active && (in.Storage != nil || in.Active != nil) {
			if err := ensureStorageLabelFree(tx, option.DeviceModelID, storage, option.ID); err != nil {
				return err
			}
		}

		if err := tx.Model(&option).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return storageConflict(storage)
			}
			return err
		}
		return tx.First(&option, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &option, nil
}

// DeactivateStorageOption hides a storage option from quoting
func (s *CatalogService) DeactivateStorageOption(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.StorageOption{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "storage option"}
	}
	return nil
}

// ensureStorageLabelFree enforces one active option per (device model, storage label)
func ensureStorageLabelFree(tx *gorm.DB, deviceID uint, storage string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.StorageOption{}).
		Where("device_model_id = ? AND UPPER(storage) = ? AND active = ? AND id <> ?",
			deviceID, strings.ToUpper(storage), true, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storageConflict(storage)
	}
	return nil
}

func storageConflict(storage string) error {
	return &ConflictError{Message: fmt.Sprintf("an active %s storage option already exists for this device", storage)}
}

// normalizeStorageLabel upper-cases labels so "128gb" and "128GB" share the active-label index
func normalizeStorageLabel(storage string) string {
	return strings.ToUpper(strings.TrimSpace(storage))
}

func ensureExists(db *gorm.DB, model interface{}, id uint, entity string) error {
	if id == 0 {
		return newValidationError(strings.ReplaceAll(entity, " ", "_")+"_id", "is required")
	}
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &NotFoundError{Entity: entity}
	}
	return nil
}

func validatePrices(excellent, good, fair, poor *models.Money) error {
	for field, price := range map[string]*models.Money{
		"price_excellent": excellent,
		"price_good":      good,
		"price_fair":      fair,
		"price_poor":      poor,
	} {
		if price != nil && price.IsNegative() {
			return newValidationError(field, "must not be negative")
		}
	}
	return nil
}

func roundedPrice(price *models.Money) *models.Money {
	if price == nil {
		return nil
	}
	rounded := models.NewMoney(price.Decimal)
	return &rounded
}

func validateReleaseYear(year int) error {
	if year == 0 {
		return nil
	}
	if year < 1990 || year > time.Now().Year()+1 {
		return newValidationError("release_year", "is out of range")
	}
	return nil
}
