package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Admin is a portal operator stored in the admins table.
type Admin struct {
	ID              string         `db:"id" json:"id"`
	Username        string         `db:"username" json:"username"`
	Email           string         `db:"email" json:"email"`
	PasswordHash    string         `db:"password_hash" json:"-"`
	Role            UserRole       `db:"role" json:"role"`
	AssignedCourses pq.StringArray `db:"assigned_courses" json:"assignedCourses"`
	Active          bool           `db:"active" json:"active"`
	LastLogin       *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// ManagesCourse reports whether the admin may act on syllabi of courseCode.
// Superadmins manage every course.
func (a *Admin) ManagesCourse(courseCode string) bool {
	if a == nil || !a.Active {
		return false
	}
	if a.Role == RoleSuperAdmin {
		return true
	}
	code := strings.ToUpper(strings.TrimSpace(courseCode))
	for _, assigned := range a.AssignedCourses {
		if strings.ToUpper(strings.TrimSpace(assigned)) == code {
			return true
		}
	}
	return false
}

// CreateAdminRequest is the payload accepted by POST /admins.
type CreateAdminRequest struct {
	Username        string   `json:"username" validate:"required,min=3,max=64"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=8"`
	Role            UserRole `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN"`
	AssignedCourses []string `json:"assignedCourses" validate:"omitempty,dive,required,max=32"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
