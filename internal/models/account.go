package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is an authenticated identity as projected from the identity
// service. A guard's account and an employee's account are both Accounts;
// what they may do is decided by their Role.
type Account struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	// EmployeeID links the account to the employee it acts for.
	// Zero means the account is not an employee (e.g. a shared scanner device).
	EmployeeID uint `gorm:"index" json:"employee_id,omitempty"`
	// Role names a row in roles. An unknown role grants nothing.
	Role string `gorm:"size:100;not null;index" json:"role"`
}
