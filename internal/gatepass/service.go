// Package gatepass runs the gate pass lifecycle of an approved permission:
// an employee requests a gate-out pass, a guard scans it at the exit, the
// employee requests a gate-in pass once the minimum absence has passed, and
// a guard scans that one on return.
//
// Each pass is single use. Per direction the state is derived from the
// stored timestamps (see models.GatePass.State); every mutation goes
// through a guarded store update so concurrent requests on one permission
// cannot both succeed.
package gatepass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/clock"
	"github.com/diewo77/gatepass/internal/events"
	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store"
	"github.com/diewo77/gatepass/internal/token"
)

// Service issues and verifies gate passes.
type Service struct {
	store     store.Store
	policy    *authz.Policy
	tokens    token.Generator
	clock     clock.Clock
	minBuffer time.Duration
	publisher events.Publisher
	log       *slog.Logger
}

// NewService creates a service. A nil clock means the wall clock; a
// non-positive minBuffer disables the absence buffer.
func NewService(st store.Store, clk clock.Clock, minBuffer time.Duration) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if minBuffer < 0 {
		minBuffer = 0
	}
	return &Service{
		store:     st,
		policy:    authz.NewPolicy(),
		tokens:    token.NewGenerator(),
		clock:     clk,
		minBuffer: minBuffer,
		publisher: &events.NoopPublisher{},
		log:       slog.Default(),
	}
}

// SetPublisher sets where lifecycle events go.
func (s *Service) SetPublisher(p events.Publisher) {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	s.publisher = p
}

func (s *Service) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetGenerator replaces the secret generator.
func (s *Service) SetGenerator(g token.Generator) {
	if g != nil {
		s.tokens = g
	}
}

// MinBuffer returns the configured minimum absence.
func (s *Service) MinBuffer() time.Duration { return s.minBuffer }

// Issued is a freshly minted pass. Secret is returned exactly once and never stored.
type Issued struct {
	Secret       string
	PermissionID uint
	Direction    models.Direction
	IssuedAt     time.Time
}

// Verified is the outcome of a successful scan.
type Verified struct {
	PermissionID uint
	EmployeeID   uint
	Direction    models.Direction
	VerifiedAt   time.Time
	VerifiedBy   uint
}

// IssueGateOut mints the exit pass for a permission owned by the caller.
// Calling it again before the pass is scanned replaces the earlier secret.
func (s *Service) IssueGateOut(ctx context.Context, caller *authz.Caller, permissionID uint) (*Issued, error) {
	return s.issue(ctx, caller, permissionID, models.DirectionOut)
}

// IssueGateIn mints the re-entry pass once the exit pass has been scanned
// and the minimum absence has passed.
func (s *Service) IssueGateIn(ctx context.Context, caller *authz.Caller, permissionID uint) (*Issued, error) {
	return s.issue(ctx, caller, permissionID, models.DirectionIn)
}

func opFor(dir models.Direction) authz.Operation {
	if dir == models.DirectionIn {
		return authz.OpIssueGateIn
	}
	return authz.OpIssueGateOut
}

func (s *Service) issue(ctx context.Context, caller *authz.Caller, id uint, dir models.Direction) (*Issued, error) {
	op := opFor(dir)
	p, err := s.load(ctx, op, id)
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}
	if d := s.policy.Authorize(caller, p, op); !d.Allowed {
		return nil, s.fail(ctx, caller, denial(d, op, id))
	}

	now := s.clock.Now()
	if e := s.checkIssuable(p, dir, now); e != nil {
		return nil, s.fail(ctx, caller, e)
	}

	secret, err := s.tokens.Mint(id, dir)
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}
	err = s.store.IssueSecret(ctx, id, dir, token.Hash(secret), now)
	if errors.Is(err, store.ErrConflict) {
		err = s.issueConflict(ctx, op, id, dir, now)
	}
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}

	s.log.InfoContext(ctx, "gate pass issued",
		"permission_id", id, "direction", dir, "caller_id", caller.ID)
	s.publish(ctx, dir, events.KindIssued, events.PassEvent{
		PermissionID: id, EmployeeID: p.EmployeeID, Direction: dir, At: now, Actor: caller.ID,
	})
	return &Issued{Secret: secret, PermissionID: id, Direction: dir, IssuedAt: now}, nil
}

// checkIssuable applies the issuance preconditions in order.
func (s *Service) checkIssuable(p *models.Permission, dir models.Direction, now time.Time) *Error {
	op := opFor(dir)
	if !p.IsApproved() {
		return newError(KindInvalidState, op, p.ID, dir)
	}
	if dir == models.DirectionIn && !p.GateOut.Verified() {
		return newError(KindInvalidState, op, p.ID, dir)
	}
	if p.Pass(dir).Verified() {
		return newError(KindAlreadyVerified, op, p.ID, dir)
	}
	if dir == models.DirectionIn {
		if wait := WaitMinutes(s.minBuffer, now.Sub(*p.GateOut.VerifiedAt)); wait > 0 {
			e := newError(KindTooEarly, op, p.ID, dir)
			e.WaitMinutes = wait
			return e
		}
	}
	return nil
}

// issueConflict explains a guarded issue that matched no row.
func (s *Service) issueConflict(ctx context.Context, op authz.Operation, id uint, dir models.Direction, now time.Time) error {
	p, err := s.load(ctx, op, id)
	if err != nil {
		return err
	}
	if e := s.checkIssuable(p, dir, now); e != nil {
		return e
	}
	return fmt.Errorf("%w: issue %s on permission %d rejected by store but preconditions hold", ErrConsistency, dir, id)
}

// Verify consumes a scanned secret. Only callers with the verifier
// capability may scan; ownership plays no part.
func (s *Service) Verify(ctx context.Context, caller *authz.Caller, scanned string) (*Verified, error) {
	op := authz.OpVerify
	if d := s.policy.Authorize(caller, nil, op); !d.Allowed {
		return nil, s.fail(ctx, caller, denial(d, op, 0))
	}
	if token.Validate(scanned) != nil {
		return nil, s.fail(ctx, caller, newError(KindUnknownToken, op, 0, ""))
	}
	hash := token.Hash(scanned)

	p, dir, err := s.resolve(ctx, hash)
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}
	if e := checkVerifiable(p, dir); e != nil {
		return nil, s.fail(ctx, caller, e)
	}

	now := s.clock.Now()
	err = s.store.MarkVerified(ctx, p.ID, dir, hash, now, caller.ID)
	if errors.Is(err, store.ErrConflict) {
		err = s.verifyConflict(ctx, hash)
	}
	if err != nil {
		return nil, s.fail(ctx, caller, err)
	}

	s.log.InfoContext(ctx, "gate pass verified",
		"permission_id", p.ID, "direction", dir, "caller_id", caller.ID)
	s.publish(ctx, dir, events.KindVerified, events.PassEvent{
		PermissionID: p.ID, EmployeeID: p.EmployeeID, Direction: dir, At: now, Actor: caller.ID,
	})
	return &Verified{
		PermissionID: p.ID,
		EmployeeID:   p.EmployeeID,
		Direction:    dir,
		VerifiedAt:   now,
		VerifiedBy:   caller.ID,
	}, nil
}

// resolve finds the permission and direction a secret fingerprint belongs to.
func (s *Service) resolve(ctx context.Context, hash string) (*models.Permission, models.Direction, error) {
	p, dir, err := s.store.FindBySecretHash(ctx, hash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, "", newError(KindUnknownToken, authz.OpVerify, 0, "")
	case errors.Is(err, store.ErrConsistency):
		return nil, "", fmt.Errorf("%w: %w", ErrConsistency, err)
	case err != nil:
		return nil, "", fmt.Errorf("resolve secret: %w", err)
	}
	return p, dir, nil
}

// checkVerifiable applies the scan preconditions in order. A consumed pass
// reports already-verified even though its fingerprint still matches.
func checkVerifiable(p *models.Permission, dir models.Direction) *Error {
	op := authz.OpVerify
	if p.Pass(dir).Verified() {
		return newError(KindAlreadyVerified, op, p.ID, dir)
	}
	if dir == models.DirectionIn && !p.GateOut.Verified() {
		return newError(KindInvalidState, op, p.ID, dir)
	}
	if !p.IsApproved() {
		return newError(KindInvalidState, op, p.ID, dir)
	}
	return nil
}

// verifyConflict explains a guarded verify that matched no row: someone
// else scanned first, the secret was replaced, or the permission changed.
func (s *Service) verifyConflict(ctx context.Context, hash string) error {
	p, dir, err := s.resolve(ctx, hash)
	if err != nil {
		return err
	}
	if e := checkVerifiable(p, dir); e != nil {
		return e
	}
	return fmt.Errorf("%w: verify %s on permission %d rejected by store but preconditions hold", ErrConsistency, dir, p.ID)
}

func (s *Service) load(ctx context.Context, op authz.Operation, id uint) (*models.Permission, error) {
	p, err := s.store.GetPermission(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindNotFound, op, id, "")
	}
	if err != nil {
		return nil, fmt.Errorf("load permission %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) publish(ctx context.Context, dir models.Direction, kind events.Kind, ev events.PassEvent) {
	topic := events.Topic(dir, kind)
	if err := s.publisher.Publish(ctx, topic, ev); err != nil {
		s.log.WarnContext(ctx, "publish gate pass event", "topic", topic, "permission_id", ev.PermissionID, "error", err)
	}
}

// fail logs err at the level its kind deserves and returns it unchanged.
// Expected outcomes are Info; anything else is a fault.
func (s *Service) fail(ctx context.Context, caller *authz.Caller, err error) error {
	var callerID uint
	if caller != nil {
		callerID = caller.ID
	}
	var e *Error
	if errors.As(err, &e) {
		attrs := []any{
			"kind", e.Kind,
			"category", e.Category(),
			"op", e.Op,
			"caller_id", callerID,
		}
		if e.PermissionID != 0 {
			attrs = append(attrs, "permission_id", e.PermissionID)
		}
		if e.Direction != "" {
			attrs = append(attrs, "direction", e.Direction)
		}
		if e.Kind == KindTooEarly {
			attrs = append(attrs, "wait_minutes", e.WaitMinutes)
		}
		s.log.InfoContext(ctx, "gate pass refused", attrs...)
		return err
	}
	s.log.ErrorContext(ctx, "gate pass failure", "caller_id", callerID, "error", err)
	return err
}
