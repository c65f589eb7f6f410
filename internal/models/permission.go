package models

import (
	"time"

	"gorm.io/gorm"
)

// PermissionStatus is the approval status owned by the external approval workflow.
type PermissionStatus string

const (
	PermissionStatusPending   PermissionStatus = "pending"
	PermissionStatusApproved  PermissionStatus = "approved"
	PermissionStatusRejected  PermissionStatus = "rejected"
	PermissionStatusCancelled PermissionStatus = "cancelled"
)

// Direction identifies which way a gate pass lets the employee through.
type Direction string

const (
	DirectionOut Direction = "gate-out"
	DirectionIn  Direction = "gate-in"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionOut || d == DirectionIn
}

// Column returns the column prefix used for d's gate pass fields.
func (d Direction) Column() string {
	if d == DirectionIn {
		return "gate_in_"
	}
	return "gate_out_"
}

// PassState is the per-direction state derived from the nullable gate pass fields.
type PassState string

const (
	PassAbsent   PassState = "absent-token"
	PassIssued   PassState = "issued-unverified"
	PassVerified PassState = "verified"
)

// Window is the approved absence window. Informational only; gate times are
// not checked against it.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Hours float64   `gorm:"type:decimal(6,2)" json:"hours"`
}

// GatePass holds one direction's token sub-state. The secret is never stored,
// only its keyed hash.
type GatePass struct {
	SecretHash string     `gorm:"size:64;index" json:"-"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy *uint      `json:"verified_by,omitempty"`
}

// State derives the pass state from its fields.
func (g GatePass) State() PassState {
	switch {
	case g.VerifiedAt != nil:
		return PassVerified
	case g.SecretHash != "":
		return PassIssued
	default:
		return PassAbsent
	}
}

// Verified reports whether this direction has been consumed.
func (g GatePass) Verified() bool {
	return g.VerifiedAt != nil
}

// Permission is an approved, time-boxed absence request. The approval
// workflow creates and approves it; the gate pass fields are written only by
// the gate pass service.
type Permission struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// EmployeeID is the employee the permission belongs to.
	EmployeeID uint `gorm:"index;not null" json:"employee_id"`
	// RequestedBy is the account that submitted the request, not necessarily the employee.
	RequestedBy uint `gorm:"not null" json:"requested_by"`

	Window Window           `gorm:"embedded;embeddedPrefix:window_" json:"window"`
	Status PermissionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Reason string           `gorm:"size:500" json:"reason,omitempty"`

	GateOut GatePass `gorm:"embedded;embeddedPrefix:gate_out_" json:"gate_out"`
	GateIn  GatePass `gorm:"embedded;embeddedPrefix:gate_in_" json:"gate_in"`
}

// GetEmployeeID implements the ownership interface used by the authorization policy.
func (p *Permission) GetEmployeeID() uint {
	if p == nil {
		return 0
	}
	return p.EmployeeID
}

// IsApproved returns true if gate pass operations are allowed at all.
func (p *Permission) IsApproved() bool {
	return p.Status == PermissionStatusApproved
}

// Pass returns the gate pass for the given direction.
func (p *Permission) Pass(d Direction) GatePass {
	if d == DirectionIn {
		return p.GateIn
	}
	return p.GateOut
}

// SetPass replaces the gate pass for the given direction.
func (p *Permission) SetPass(d Direction, g GatePass) {
	if d == DirectionIn {
		p.GateIn = g
		return
	}
	p.GateOut = g
}

// Completed is true once both directions are verified; no further gate pass
// operation is possible on this record.
func (p *Permission) Completed() bool {
	return p.GateOut.Verified() && p.GateIn.Verified()
}
