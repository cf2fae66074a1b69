package models

import (
	"time"
)

// Staff roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// IsValidRole reports whether role is a known staff role
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// StaffMember is an entry on the staff allow-list
type StaffMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	Role      string    `gorm:"not null;default:'staff'" json:"role"` // "admin" or "staff"
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the StaffMember model
func (StaffMember) TableName() string {
	return "staff_members"
}
