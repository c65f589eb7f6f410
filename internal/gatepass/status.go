package gatepass

import (
	"context"
	"time"

	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/models"
)

// PassStatus is the derived state of one direction.
type PassStatus struct {
	State      models.PassState `json:"state"`
	IssuedAt   *time.Time       `json:"issued_at,omitempty"`
	VerifiedAt *time.Time       `json:"verified_at,omitempty"`
	VerifiedBy *uint            `json:"verified_by,omitempty"`
}

// StatusView is a read-only snapshot of a permission's gate passes.
type StatusView struct {
	PermissionID uint                    `json:"permission_id"`
	EmployeeID   uint                    `json:"employee_id"`
	Status       models.PermissionStatus `json:"status"`
	GateOut      PassStatus              `json:"gate_out"`
	GateIn       PassStatus              `json:"gate_in"`
	// WaitMinutes is how long until gate-in may be requested, once the exit is verified.
	WaitMinutes int  `json:"wait_minutes"`
	Completed   bool `json:"completed"`
}

func passStatus(g models.GatePass) PassStatus {
	return PassStatus{
		State:      g.State(),
		IssuedAt:   g.IssuedAt,
		VerifiedAt: g.VerifiedAt,
		VerifiedBy: g.VerifiedBy,
	}
}

// Status reports where a permission is in its gate pass lifecycle. The
// owner and verifiers may look; nothing is changed.
func (s *Service) Status(ctx context.Context, caller *authz.Caller, permissionID uint) (*StatusView, error) {
	op := authz.OpViewStatus
	p, err := s.load(ctx, op, permissionID)
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}
	if d := s.policy.Authorize(caller, p, op); !d.Allowed {
		return nil, s.fail(ctx, caller, denial(d, op, permissionID))
	}

	v := &StatusView{
		PermissionID: p.ID,
		EmployeeID:   p.EmployeeID,
		Status:       p.Status,
		GateOut:      passStatus(p.GateOut),
		GateIn:       passStatus(p.GateIn),
		Completed:    p.Completed(),
	}
	if p.GateOut.Verified() && !p.GateIn.Verified() {
		v.WaitMinutes = WaitMinutes(s.minBuffer, s.clock.Now().Sub(*p.GateOut.VerifiedAt))
	}
	return v, nil
}
