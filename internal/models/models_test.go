package models

import (
	"testing"
	"time"
)

func TestGatePass_State(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	guard := uint(7)

	tests := []struct {
		name string
		pass GatePass
		want PassState
	}{
		{"empty", GatePass{}, PassAbsent},
		{"issued", GatePass{SecretHash: "abc", IssuedAt: &now}, PassIssued},
		{"verified", GatePass{SecretHash: "abc", IssuedAt: &now, VerifiedAt: &now, VerifiedBy: &guard}, PassVerified},
		// verifiedAt wins even if the hash were somehow cleared
		{"verified without hash", GatePass{VerifiedAt: &now}, PassVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pass.State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPermission_PassByDirection(t *testing.T) {
	now := time.Now()
	p := &Permission{}
	p.SetPass(DirectionOut, GatePass{SecretHash: "out", IssuedAt: &now})
	p.SetPass(DirectionIn, GatePass{SecretHash: "in"})

	if got := p.Pass(DirectionOut).SecretHash; got != "out" {
		t.Errorf("Pass(out).SecretHash = %q, want out", got)
	}
	if got := p.Pass(DirectionIn).SecretHash; got != "in" {
		t.Errorf("Pass(in).SecretHash = %q, want in", got)
	}
	if p.Completed() {
		t.Error("Completed() = true before any verification")
	}

	p.GateOut.VerifiedAt = &now
	p.GateIn.VerifiedAt = &now
	if !p.Completed() {
		t.Error("Completed() = false with both directions verified")
	}
}

func TestPermission_Ownership(t *testing.T) {
	p := &Permission{EmployeeID: 42, RequestedBy: 3, Status: PermissionStatusApproved}
	if got := p.GetEmployeeID(); got != 42 {
		t.Errorf("GetEmployeeID() = %d, want 42", got)
	}
	if !p.IsApproved() {
		t.Error("IsApproved() = false for approved permission")
	}
	p.Status = PermissionStatusCancelled
	if p.IsApproved() {
		t.Error("IsApproved() = true for cancelled permission")
	}
}

func TestDirection(t *testing.T) {
	if !DirectionOut.Valid() || !DirectionIn.Valid() {
		t.Error("known directions should be valid")
	}
	if Direction("sideways").Valid() {
		t.Error("unknown direction should be invalid")
	}
	if DirectionOut.Column() != "gate_out_" || DirectionIn.Column() != "gate_in_" {
		t.Errorf("unexpected column prefixes %q %q", DirectionOut.Column(), DirectionIn.Column())
	}
}

func TestCapability_Code(t *testing.T) {
	c := Capability{Resource: "gatepass", Action: "verify"}
	if c.Code() != "gatepass:verify" {
		t.Errorf("Code() = %q", c.Code())
	}
}
