package models

import "time"

// UserRole is the role column of the admin user table.
type UserRole string

const (
	RoleAdmin UserRole = "Admin"
	RoleUser  UserRole = "User"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserStatus is the status column of the admin user table.
type UserStatus string

const (
	StatusActive   UserStatus = "Active"
	StatusInactive UserStatus = "Inactive"
)

// LastLoginLayout is the date-only format used for User.LastLogin.
const LastLoginLayout = "2006-01-02"

// User is a row of the admin dashboard user table.
type User struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	Role      UserRole   `db:"role" json:"role"`
	Status    UserStatus `db:"status" json:"status"`
	LastLogin string     `db:"last_login" json:"lastLogin"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsActiveAdmin reports whether u counts against the single active admin rule.
func (u *User) IsActiveAdmin() bool {
	return u.Role == RoleAdmin && u.Status == StatusActive
}

// UserInput is the editable part of a User.
type UserInput struct {
	Name  string   `json:"name" binding:"required"`
	Email string   `json:"email" binding:"required,email"`
	Phone string   `json:"phone"`
	Role  UserRole `json:"role" binding:"required"`
}

// UserStats summarises the user table for the dashboard cards.
type UserStats struct {
	TotalUsers     int `db:"total_users" json:"totalUsers"`
	ActiveUsers    int `db:"active_users" json:"activeUsers"`
	Administrators int `db:"administrators" json:"administrators"`
}
