package users

import (
	"strings"
	"time"
)

// RoleType is the single role the backend assigns to every account.
type RoleType string

const (
	RoleAdmin   RoleType = "admin"   // Can manage managers, users and all posts
	RoleManager RoleType = "manager" // Can manage users and all posts
	RoleUser    RoleType = "user"    // Can write and manage their own posts
)

// Roles lists every known role, most privileged first.
var Roles = []RoleType{RoleAdmin, RoleManager, RoleUser}

func (r RoleType) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// UserProfile is the account as returned by the backend. The role flags are
// derived by the backend from Role and trusted as-is; they are never
// recomputed client-side.
type UserProfile struct {
	ID          int        `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Role        RoleType   `json:"role"`
	Bio         string     `json:"bio,omitempty"`
	DateOfBirth *string    `json:"date_of_birth,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"` // Only present in user listings

	IsAdmin        bool `json:"is_admin"`
	IsManager      bool `json:"is_manager"`
	IsUser         bool `json:"is_user"`
	CanManageUsers bool `json:"can_manage_users"`
	CanManagePosts bool `json:"can_manage_posts"`
	CanCreatePosts bool `json:"can_create_posts"`
}

// HasRole reports whether the profile's role is one of roles.
func (u *UserProfile) HasRole(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// FullName joins first and last name, falling back to the username.
func (u *UserProfile) FullName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// ProfileInput carries the writable profile fields for registration and
// profile updates. Empty optional fields are omitted from the request.
type ProfileInput struct {
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"password,omitempty"`
	Password2 string   `json:"password2,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Role      RoleType `json:"role,omitempty"`
	Bio       string   `json:"bio,omitempty"`
}
