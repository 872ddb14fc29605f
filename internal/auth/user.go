// Package auth provides PAM-backed login, JWT session tokens and the
// middleware that protects the dashboard API.
package auth

// Role represents user access level
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleReadOnly Role = "readonly"
)

// User represents an authenticated user
type User struct {
	Username string `json:"username"`
	UID      string `json:"uid"`
	GID      string `json:"gid"`
	Role     Role   `json:"role"`
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
