// Package authz decides who may request and who may verify gate passes.
//
// Requesting a pass is tied to ownership of the permission; verifying one is
// tied to the verifier capability and never to ownership. Capabilities use
// the "resource:action" format and are grouped into role profiles.
package authz

// Operation is the kind of gate pass action being authorized.
type Operation string

const (
	OpIssueGateOut Operation = "issue-gate-out"
	OpIssueGateIn  Operation = "issue-gate-in"
	OpVerify       Operation = "verify"
	OpViewStatus   Operation = "view-status"
)

// Deny reasons.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonNotOwner        = "not-owner"
	ReasonNotVerifier     = "not-verifier"
	ReasonUnknownOp       = "unknown-operation"
)

// Ownable is implemented by resources owned by an employee.
type Ownable interface {
	GetEmployeeID() uint
}

// Caller is an authenticated identity with its resolved role profile.
type Caller struct {
	ID         uint
	EmployeeID uint
	Role       string
	Profile    Profile
}

// Can reports whether the caller's profile grants want. A caller without a
// profile can do nothing.
func (c *Caller) Can(want Capability) bool {
	return c != nil && c.Profile != nil && c.Profile.Has(want)
}

// Owns reports whether the caller acts for the employee owning r.
func (c *Caller) Owns(r Ownable) bool {
	if c == nil || r == nil || c.EmployeeID == 0 {
		return false
	}
	return c.EmployeeID == r.GetEmployeeID()
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Policy is the single gate pass authorization policy. It has no state and
// no side effects.
type Policy struct{}

func NewPolicy() *Policy { return &Policy{} }

// Authorize decides whether caller may perform op. resource may be nil for
// verify, which never depends on ownership.
func (p *Policy) Authorize(caller *Caller, resource Ownable, op Operation) Decision {
	if caller == nil {
		return deny(ReasonUnauthenticated)
	}
	switch op {
	case OpIssueGateOut, OpIssueGateIn:
		if caller.Owns(resource) && caller.Can(CapRequest) {
			return allow()
		}
		return deny(ReasonNotOwner)
	case OpVerify:
		if caller.Can(CapVerify) {
			return allow()
		}
		return deny(ReasonNotVerifier)
	case OpViewStatus:
		if caller.Can(CapVerify) || (caller.Owns(resource) && caller.Can(CapRequest)) {
			return allow()
		}
		return deny(ReasonNotOwner)
	default:
		return deny(ReasonUnknownOp)
	}
}
