package testutil

import (
	"testing"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database with the condition tiers seeded.
// It is limited to one connection because every :memory: connection is a separate database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	require.NoError(t, models.SeedConditions(db), "Failed to seed conditions")
	return db
}

// Catalog is the fixture created by SeedCatalog
type Catalog struct {
	Category   models.Category
	Brand      models.Brand
	Device     models.DeviceModel
	Storage256 models.StorageOption // every tier priced
	Storage128 models.StorageOption // no price for poor
}

// SeedCatalog creates Smartphones / Apple / iPhone 15 Pro with a 256GB and a 128GB option
func SeedCatalog(t *testing.T, db *gorm.DB) Catalog {
	t.Helper()

	c := Catalog{
		Category: models.Category{Name: "Smartphones", Slug: "smartphones", Active: true},
		Brand:    models.Brand{Name: "Apple", Slug: "apple", Active: true},
	}
	require.NoError(t, db.Create(&c.Category).Error)
	require.NoError(t, db.Create(&c.Brand).Error)

	c.Device = models.DeviceModel{
		Name:        "iPhone 15 Pro",
		CategoryID:  c.Category.ID,
		BrandID:     c.Brand.ID,
		ReleaseYear: 2023,
		Active:      true,
	}
	require.NoError(t, db.Create(&c.Device).Error)

	c.Storage256 = models.StorageOption{
		DeviceModelID:  c.Device.ID,
		Storage:        "256GB",
		PriceExcellent: models.MoneyPtr("1350.00"),
		PriceGood:      models.MoneyPtr("1200.00"),
		PriceFair:      models.MoneyPtr("1000.00"),
		PricePoor:      models.MoneyPtr("750.00"),
		Active:         true,
	}
	require.NoError(t, db.Create(&c.Storage256).Error)

	c.Storage128 = models.StorageOption{
		DeviceModelID:  c.Device.ID,
		Storage:        "128GB",
		PriceExcellent: models.MoneyPtr("1100.00"),
		PriceGood:      models.MoneyPtr("950.00"),
		PriceFair:      models.MoneyPtr("800.00"),
		Active:         true,
	}
	require.NoError(t, db.Create(&c.Storage128).Error)

	return c
}

// CreateStaffMember puts email on the allow-list with role
func CreateStaffMember(t *testing.T, db *gorm.DB, email, role string) models.StaffMember {
	t.Helper()

	member := models.StaffMember{Email: email, Name: email, Role: role, Active: true}
	require.NoError(t, db.Create(&member).Error)
	return member
}
