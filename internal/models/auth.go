package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleLabAdmin   UserRole = "LAB_ADMIN"
	RoleMember     UserRole = "MEMBER"
)

// JWTClaims is the verified content of a session token issued by the
// identity service. LabIDs lists the labs the actor administers.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	LabIDs   []string `json:"lab_ids"`
	jwt.RegisteredClaims
}

// HasLab reports whether the claims grant access to the given lab.
func (c *JWTClaims) HasLab(labID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleSuperAdmin {
		return true
	}
	for _, id := range c.LabIDs {
		if id == labID {
			return true
		}
	}
	return false
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
