package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleWarden  UserRole = "WARDEN"
)

// Valid reports whether the role is one of the known hostel roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleWarden:
		return true
	}
	return false
}

// User represents an account stored in the users table. Student specific
// columns stay NULL for staff accounts.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FullName           string     `db:"full_name" json:"full_name"`
	Role               UserRole   `db:"role" json:"role"`
	Phone              string     `db:"phone" json:"phone"`
	Department         *string    `db:"department" json:"department,omitempty"`
	RegistrationNumber *string    `db:"registration_number" json:"registration_number,omitempty"`
	GuardianPhone      *string    `db:"guardian_phone" json:"guardian_phone,omitempty"`
	RoomNumber         *string    `db:"room_number" json:"room_number,omitempty"`
	Active             bool       `db:"active" json:"active"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
