package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Josevinuez/trade-in-api/models"
	"github.com/Josevinuez/trade-in-api/utils"
	"gorm.io/gorm"
)

// StaffMemberInput creates an allow-list entry
type StaffMemberInput struct {
	Email string
	Name  string
	Role  string
}

// StaffMemberUpdate changes an allow-list entry. Nil fields are left untouched.
type StaffMemberUpdate struct {
	Name   *string
	Role   *string
	Active *bool
}

// StaffService manages the staff allow-list
type StaffService struct {
	db           *gorm.DB
	allowedRoles []string
}

// NewStaffService creates a staff service admitting the given roles
func NewStaffService(db *gorm.DB, allowedRoles []string) *StaffService {
	return &StaffService{db: db, allowedRoles: allowedRoles}
}

// Authorize resolves email to an active staff member whose role is allowed
func (s *StaffService) Authorize(ctx context.Context, email string) (*models.StaffMember, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotStaff
	}

	var member models.StaffMember
	err := s.db.WithContext(ctx).Where("email = ? AND active = ?", email, true).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotStaff
	}
	if err != nil {
		return nil, err
	}

	for _, role := range s.allowedRoles {
		if strings.EqualFold(role, member.Role) {
			return &member, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRoleNotAllowed, member.Role)
}

// List returns every allow-list entry by email
func (s *StaffService) List(ctx context.Context) ([]models.StaffMember, error) {
	var members []models.StaffMember
	if err := s.db.WithContext(ctx).Order("email ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Create adds an active staff member
func (s *StaffService) Create(ctx context.Context, in StaffMemberInput) (*models.StaffMember, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, newValidationError("email", "must be a valid email address")
	}
	role := in.Role
	if role == "" {
		role = models.RoleStaff
	}
	if !models.IsValidRole(role) {
		return nil, newValidationError("role", "must be admin or staff")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}

	member := models.StaffMember{Email: email, Name: name, Role: role, Active: true}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, &ConflictError{Message: fmt.Sprintf("staff member %s already exists", email)}
		}
		return nil, err
	}
	return &member, nil
}

// Update changes a staff member's name, role or active flag
func (s *StaffService) Update(ctx context.Context, id uint, in StaffMemberUpdate) (*models.StaffMember, error) {
	db := s.db.WithContext(ctx)

	var member models.StaffMember
	if err := db.First(&member, id).Error; err != nil {
		return nil, notFoundOr(err, "staff member")
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, newValidationError("name", "must not be empty")
		}
		updates["name"] = name
	}
	if in.Role != nil {
		if !models.IsValidRole(*in.Role) {
			return nil, newValidationError("role", "must be admin or staff")
		}
		updates["role"] = *in.Role
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if len(updates) == 0 {
		return nil, newValidationError("body", "no fields to update")
	}

	if err := db.Model(&member).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}
