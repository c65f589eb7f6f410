package authz

import "strings"

// Capability represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "gatepass:request", "gatepass:verify").
type Capability string

const (
	// CapRequest lets an employee request passes for their own permissions.
	CapRequest Capability = "gatepass:request"
	// CapVerify lets security personnel consume scanned passes.
	CapVerify Capability = "gatepass:verify"
)

// Wildcards for super capabilities
const (
	WildcardAll                     = "*"
	CapabilitySuperAdmin Capability = "*:*"
)

// NewCapability creates a capability from resource type and action.
func NewCapability(resource, action string) Capability {
	return Capability(resource + ":" + action)
}

// Parse splits a capability into resource type and action.
func (c Capability) Parse() (resource, action string) {
	parts := strings.SplitN(string(c), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// Matches checks if this capability covers a requested one.
// "*:*" matches all, "gatepass:*" matches every gatepass action.
func (c Capability) Matches(requested Capability) bool {
	if c == CapabilitySuperAdmin {
		return true
	}
	if c == requested {
		return true
	}
	res, act := c.Parse()
	if res == "" {
		return false
	}
	reqRes, _ := requested.Parse()
	return res == reqRes && act == WildcardAll
}
