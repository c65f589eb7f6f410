package models

import (
	"time"

	"gorm.io/gorm"
)

// Role groups capabilities. An account has exactly one role by name.
type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	IsSystem    bool           `gorm:"default:false" json:"is_system"`
	// Capabilities holds what this role may do, via the role_capabilities join table.
	Capabilities []Capability `gorm:"many2many:role_capabilities;" json:"capabilities,omitempty"`
}

// Capability is a single "resource:action" grant, e.g. "gatepass:verify".
type Capability struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Resource    string         `gorm:"size:50;not null;index:idx_cap_resource_action" json:"resource"`
	Action      string         `gorm:"size:50;not null;index:idx_cap_resource_action" json:"action"`
	Description string         `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the capability in "resource:action" format for matching.
func (c Capability) Code() string {
	return c.Resource + ":" + c.Action
}
