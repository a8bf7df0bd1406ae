package domain

import "time"

// StaffRole enumerates IT support desk roles.
type StaffRole string

const (
	StaffRoleTechnician StaffRole = "TECHNICIAN"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember represents an IT staff account able to work tickets.
type StaffMember struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Phone        *string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
