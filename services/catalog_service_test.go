package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/testutil"
	"github.com/Josevinuez/trade-in-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartFile builds a *multipart.FileHeader the same way gin does for an upload
func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(utils.MaxFileSize))
	return req.MultipartForm.File["image"][0]
}

func TestCategoriesAndBrands(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCatalogService(db, nil)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, " Gaming Consoles ", "")
	require.NoError(t, err)
	assert.Equal(t, "Gaming Consoles", category.Name)
	assert.Equal(t, "gaming-consoles", category.Slug)
	assert.True(t, category.Active)

	_, err = svc.CreateCategory(ctx, "Gaming Consoles", "")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateCategory(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	brand, err := svc.CreateBrand(ctx, "Samsung", "samsung-electronics")
	require.NoError(t, err)
	assert.Equal(t, "samsung-electronics", brand.Slug)

	require.NoError(t, db.Model(&models.Brand{}).Where("id = ?", brand.ID).Update("active", false).Error)
	brands, err := svc.ListBrands(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, brands)
	brands, err = svc.ListBrands(ctx, true)
	require.NoError(t, err)
	assert.Len(t, brands, 1)

	conditions, err := svc.ListConditions(ctx)
	require.NoError(t, err)
	require.Len(t, conditions, 4)
	assert.Equal(t, models.ConditionExcellent, conditions[0].Slug)
	assert.Equal(t, models.ConditionPoor, conditions[3].Slug)
}

func TestListDevicesFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewCatalogService(db, nil)
	ctx := context.Background()

	tablets, err := svc.CreateCategory(ctx, "Tablets", "")
	require.NoError(t, err)
	samsung, err := svc.CreateBrand(ctx, "Samsung", "")
	require.NoError(t, err)
	_, err = svc.CreateDevice(ctx, DeviceInput{Name: "Galaxy Tab S9", CategoryID: tablets.ID, BrandID: samsung.ID, ReleaseYear: 2023})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter DeviceFilter
		want   []string
	}{
		{"all active", DeviceFilter{}, []string{"Galaxy Tab S9", "iPhone 15 Pro"}},
		{"by category", DeviceFilter{Category: "smartphones"}, []string{"iPhone 15 Pro"}},
		{"by brand", DeviceFilter{Brand: "samsung"}, []string{"Galaxy Tab S9"}},
		{"by name", DeviceFilter{Query: "IPHONE"}, []string{"iPhone 15 Pro"}},
		{"combined with no match", DeviceFilter{Category: "tablets", Brand: "apple"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := svc.ListDevices(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, d := range devices {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	t.Run("deactivated devices are hidden", func(t *testing.T) {
		require.NoError(t, svc.DeactivateDevice(ctx, catalog.Device.ID))

		devices, err := svc.ListDevices(ctx, DeviceFilter{Brand: "apple"})
		require.NoError(t, err)
		assert.Empty(t, devices)

		_, err = svc.GetDevice(ctx, catalog.Device.ID, false)
		assert.ErrorIs(t, err, ErrNotFound)

		device, err := svc.GetDevice(ctx, catalog.Device.ID, true)
		require.NoError(t, err)
		assert.False(t, device.Active)
	})

	assert.ErrorIs(t, svc.DeactivateDevice(ctx, 9999), ErrNotFound)
}

func TestDeviceCrud(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewCatalogService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateDevice(ctx, DeviceInput{Name: "Pixel 8", CategoryID: catalog.Category.ID, BrandID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.CreateDevice(ctx, DeviceInput{Name: "Pixel 8", CategoryID: catalog.Category.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateDevice(ctx, DeviceInput{Name: "Pixel 8", CategoryID: catalog.Category.ID, BrandID: catalog.Brand.ID, ReleaseYear: 1800})
	assert.ErrorIs(t, err, ErrValidation)

	device, err := svc.CreateDevice(ctx, DeviceInput{Name: "iPhone 14", CategoryID: catalog.Category.ID, BrandID: catalog.Brand.ID, ReleaseYear: 2022})
	require.NoError(t, err)
	require.NotNil(t, device.Brand)
	assert.Equal(t, "Apple", device.Brand.Name)

	name := "iPhone 14 Plus"
	updated, err := svc.UpdateDevice(ctx, device.ID, DeviceUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "iPhone 14 Plus", updated.Name)
	assert.Equal(t, 2022, updated.ReleaseYear)

	_, err = svc.UpdateDevice(ctx, device.ID, DeviceUpdate{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateDevice(ctx, 9999, DeviceUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorageOptions(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewCatalogService(db, nil)
	ctx := context.Background()

	t.Run("one active option per label", func(t *testing.T) {
		_, err := svc.CreateStorageOption(ctx, catalog.Device.ID, StorageOptionInput{Storage: "256gb"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("negative prices are rejected", func(t *testing.T) {
		_, err := svc.CreateStorageOption(ctx, catalog.Device.ID, StorageOptionInput{Storage: "512GB", PriceGood: models.MoneyPtr("-5")})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "price_good", verr.Field)
	})

	t.Run("unknown device", func(t *testing.T) {
		_, err := svc.CreateStorageOption(ctx, 9999, StorageOptionInput{Storage: "512GB"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	option, err := svc.CreateStorageOption(ctx, catalog.Device.ID, StorageOptionInput{
		Storage:        "512GB",
		PriceExcellent: models.MoneyPtr("1500.005"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1500.01", option.PriceExcellent.StringFixed(2))
	assert.Nil(t, option.PricePoor)

	t.Run("price update is quoted", func(t *testing.T) {
		updated, err := svc.UpdateStorageOption(ctx, option.ID, StorageOptionUpdate{PricePoor: models.MoneyPtr("600")})
		require.NoError(t, err)
		assert.Equal(t, "600.00", updated.PricePoor.StringFixed(2))

		quote, err := NewPricingService(db).Quote(ctx, QuoteRequest{DeviceModelID: catalog.Device.ID, Storage: "512GB", Condition: "poor"})
		require.NoError(t, err)
		assert.Equal(t, "600.00", quote.Price.StringFixed(2))
	})

	t.Run("renaming onto an active label conflicts", func(t *testing.T) {
		label := "128GB"
		_, err := svc.UpdateStorageOption(ctx, option.ID, StorageOptionUpdate{Storage: &label})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("deactivated label can be reused", func(t *testing.T) {
		require.NoError(t, svc.DeactivateStorageOption(ctx, catalog.Storage128.ID))
		_, err := svc.CreateStorageOption(ctx, catalog.Device.ID, StorageOptionInput{Storage: "128GB", PriceGood: models.MoneyPtr("900")})
		require.NoError(t, err)

		active := true
		_, err = svc.UpdateStorageOption(ctx, catalog.Storage128.ID, StorageOptionUpdate{Active: &active})
		assert.ErrorIs(t, err, ErrConflict, "reactivating would create a second active 128GB")
	})

	assert.ErrorIs(t, svc.DeactivateStorageOption(ctx, 9999), ErrNotFound)
}

func TestStorageOptionLabelIndex(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	svc := NewCatalogService(db, nil)
	ctx := context.Background()

	t.Run("labels are stored upper-cased", func(t *testing.T) {
		option, err := svc.CreateStorageOption(ctx, catalog.Device.ID, StorageOptionInput{Storage: " 1tb ", PriceGood: models.MoneyPtr("1400")})
		require.NoError(t, err)
		assert.Equal(t, "1TB", option.Storage)

		label := "2tb"
		updated, err := svc.UpdateStorageOption(ctx, option.ID, StorageOptionUpdate{Storage: &label})
		require.NoError(t, err)
		assert.Equal(t, "2TB", updated.Storage)
	})

	t.Run("database rejects a second active label", func(t *testing.T) {
		duplicate := models.StorageOption{DeviceModelID: catalog.Device.ID, Storage: "256GB", Active: true}
		err := db.Create(&duplicate).Error
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err), err.Error())
	})

	t.Run("inactive duplicates are allowed", func(t *testing.T) {
		require.NoError(t, db.Model(&catalog.Storage256).Update("active", false).Error)
		replacement := models.StorageOption{DeviceModelID: catalog.Device.ID, Storage: "256GB", Active: true}
		require.NoError(t, db.Create(&replacement).Error)

		require.NoError(t, db.Model(&replacement).Update("active", false).Error)
		require.NoError(t, db.Create(&models.StorageOption{DeviceModelID: catalog.Device.ID, Storage: "256GB", Active: true}).Error)

		var count int64
		require.NoError(t, db.Model(&models.StorageOption{}).
			Where("device_model_id = ? AND storage = ?", catalog.Device.ID, "256GB").Count(&count).Error)
		assert.Equal(t, int64(3), count)
	})
}

func TestSetDeviceImage(t *testing.T) {
	db := testutil.NewTestDB(t)
	catalog := testutil.SeedCatalog(t, db)
	ctx := context.Background()

	t.Run("disabled without storage", func(t *testing.T) {
		svc := NewCatalogService(db, nil)
		_, err := svc.SetDeviceImage(ctx, catalog.Device.ID, multipartFile(t, "front.png", []byte("png")))
		assert.ErrorIs(t, err, ErrImageStorageDisabled)
	})

	mockS3 := NewMockS3Service()
	svc := NewCatalogService(db, NewS3ImageService(mockS3))

	device, err := svc.SetDeviceImage(ctx, catalog.Device.ID, multipartFile(t, "front.png", []byte("png-bytes")))
	require.NoError(t, err)
	require.NotNil(t, device.ImageKey)
	first := *device.ImageKey
	assert.Contains(t, first, "devices/")
	require.NotNil(t, device.ImageURL)
	assert.Contains(t, *device.ImageURL, first)
	assert.True(t, mockS3.FileExists(first))

	device, err = svc.SetDeviceImage(ctx, catalog.Device.ID, multipartFile(t, "back.jpg", []byte("jpg-bytes")))
	require.NoError(t, err)
	assert.NotEqual(t, first, *device.ImageKey)
	assert.False(t, mockS3.FileExists(first), "previous image is removed")

	_, err = svc.SetDeviceImage(ctx, catalog.Device.ID, multipartFile(t, "notes.txt", []byte("text")))
	var uploadErr *utils.FileUploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "INVALID_FILE_FORMAT", uploadErr.Code)

	_, err = svc.SetDeviceImage(ctx, 9999, multipartFile(t, "front.png", []byte("png")))
	assert.ErrorIs(t, err, ErrNotFound)
}
