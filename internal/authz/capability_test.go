package authz_test

import (
	"testing"

	"github.com/diewo77/gatepass/internal/authz"
)

func TestCapability_Parse(t *testing.T) {
	res, act := authz.CapVerify.Parse()
	if res != "gatepass" || act != "verify" {
		t.Errorf("Parse() = %q, %q", res, act)
	}
	res, act = authz.Capability("garbage").Parse()
	if res != "" || act != "" {
		t.Errorf("Parse(garbage) = %q, %q, want empty", res, act)
	}
}

func TestCapability_Matches(t *testing.T) {
	tests := []struct {
		name      string
		have      authz.Capability
		requested authz.Capability
		want      bool
	}{
		{"exact", authz.CapVerify, authz.CapVerify, true},
		{"different action", authz.CapRequest, authz.CapVerify, false},
		{"resource wildcard", "gatepass:*", authz.CapVerify, true},
		{"other resource wildcard", "permission:*", authz.CapVerify, false},
		{"superadmin", authz.CapabilitySuperAdmin, authz.CapRequest, true},
		{"malformed grant", "*", authz.CapVerify, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.have.Matches(tt.requested); got != tt.want {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.have, tt.requested, got, tt.want)
			}
		})
	}
}

func TestNewCapability(t *testing.T) {
	if got := authz.NewCapability("gatepass", "request"); got != authz.CapRequest {
		t.Errorf("NewCapability = %q", got)
	}
}
