package models

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table in dependency order
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Category{},
		&Brand{},
		&Condition{},
		&DeviceModel{},
		&StorageOption{},
		&Customer{},
		&StaffMember{},
		&TradeInOrder{},
		&OrderStatusHistory{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// DefaultConditions are the condition tiers offered to customers
func DefaultConditions() []Condition {
	return []Condition{
		{Slug: ConditionExcellent, Name: "Excellent", Description: "No visible wear, fully functional", SortOrder: 1},
		{Slug: ConditionGood, Name: "Good", Description: "Light signs of use, fully functional", SortOrder: 2},
		{Slug: ConditionFair, Name: "Fair", Description: "Noticeable scratches or dents, fully functional", SortOrder: 3},
		{Slug: ConditionPoor, Name: "Poor", Description: "Heavy wear or minor functional issues", SortOrder: 4},
	}
}

// SeedConditions inserts any missing condition tier
func SeedConditions(db *gorm.DB) error {
	for _, condition := range DefaultConditions() {
		c := condition
		if err := db.Where(Condition{Slug: c.Slug}).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("failed to seed condition %s: %w", c.Slug, err)
		}
	}
	return nil
}

// SeedStaffAdmins puts every email on the allow-list as an active admin
func SeedStaffAdmins(db *gorm.DB, emails []string) error {
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		member := StaffMember{Email: email, Name: email, Role: RoleAdmin, Active: true}
		if err := db.Where(StaffMember{Email: email}).FirstOrCreate(&member).Error; err != nil {
			return fmt.Errorf("failed to seed staff admin %s: %w", email, err)
		}
		log.Printf("Staff admin %s is on the allow-list", email)
	}
	return nil
}
