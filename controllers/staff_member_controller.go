package controllers

import (
	"net/http"

	"github.com/Josevinuez/trade-in-api/config"
	"github.com/Josevinuez/trade-in-api/middleware"
	"github.com/Josevinuez/trade-in-api/services"
	"github.com/gin-gonic/gin"
)

// CreateStaffMemberRequest represents the request body for adding a staff member
type CreateStaffMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"max=100"`
	Role  string `json:"role" binding:"omitempty,oneof=admin staff"`
}

// UpdateStaffMemberRequest represents the request body for updating a staff member
type UpdateStaffMemberRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Role   *string `json:"role" binding:"omitempty,oneof=admin staff"`
	Active *bool   `json:"active"`
}

func staffService() *services.StaffService {
	return services.NewStaffService(config.GetDB(), nil)
}

// GetMe handles GET /api/v1/staff/me - returns the authorized staff member
func GetMe(c *gin.Context) {
	member, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Staff identity not found")
		return
	}
	respondData(c, http.StatusOK, member)
}

// ListStaffMembers handles GET /api/v1/staff/members (admin only)
func ListStaffMembers(c *gin.Context) {
	members, err := staffService().List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list staff members")
		return
	}
	respondData(c, http.StatusOK, members)
}

// CreateStaffMember handles POST /api/v1/staff/members (admin only)
func CreateStaffMember(c *gin.Context) {
	var req CreateStaffMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	member, err := staffService().Create(c.Request.Context(), services.StaffMemberInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		respondServiceError(c, err, "create staff member")
		return
	}
	respondData(c, http.StatusCreated, member)
}

// UpdateStaffMember handles PATCH /api/v1/staff/members/:id (admin only)
func UpdateStaffMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStaffMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	// an admin cannot lock themselves out
	if me, err := middleware.GetStaff(c); err == nil && me.ID == id {
		if (req.Active != nil && !*req.Active) || (req.Role != nil && *req.Role != me.Role) {
			respondError(c, http.StatusConflict, "CONFLICT", "You cannot deactivate or change the role of your own account")
			return
		}
	}

	member, err := staffService().Update(c.Request.Context(), id, services.StaffMemberUpdate{
		Name:   req.Name,
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		respondServiceError(c, err, "update staff member")
		return
	}
	respondData(c, http.StatusOK, member)
}
