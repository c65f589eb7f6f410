// Package storetest holds behavior checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Run exercises the guarded update contract of store.Store.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("IssueOverwrites", func(t *testing.T) { testIssueOverwrites(t, newStore(t)) })
	t.Run("IssueRequiresApproved", func(t *testing.T) { testIssueRequiresApproved(t, newStore(t)) })
	t.Run("GateInRequiresGateOutVerified", func(t *testing.T) { testGateInRequiresGateOut(t, newStore(t)) })
	t.Run("VerifyOnce", func(t *testing.T) { testVerifyOnce(t, newStore(t)) })
	t.Run("VerifySupersededHash", func(t *testing.T) { testVerifySuperseded(t, newStore(t)) })
	t.Run("FindBySecretHash", func(t *testing.T) { testFind(t, newStore(t)) })
}

func approved(t *testing.T, s store.Store, employee uint) *models.Permission {
	t.Helper()
	p := &models.Permission{
		EmployeeID:  employee,
		RequestedBy: employee,
		Status:      models.PermissionStatusApproved,
		Window:      models.Window{Start: t0, End: t0.Add(2 * time.Hour), Hours: 2},
	}
	if err := s.CreatePermission(context.Background(), p); err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("CreatePermission did not assign an id")
	}
	return p
}

func mustGet(t *testing.T, s store.Store, id uint) *models.Permission {
	t.Helper()
	p, err := s.GetPermission(context.Background(), id)
	if err != nil {
		t.Fatalf("GetPermission(%d): %v", id, err)
	}
	return p
}

func testGetMissing(t *testing.T, s store.Store) {
	if _, err := s.GetPermission(context.Background(), 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetPermission(999) err = %v, want ErrNotFound", err)
	}
}

func testIssueOverwrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := approved(t, s, 10)

	if err := s.IssueSecret(ctx, p.ID, models.DirectionOut, "h1", t0); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if err := s.IssueSecret(ctx, p.ID, models.DirectionOut, "h2", t0.Add(time.Minute)); err != nil {
		t.Fatalf("re-issue: %v", err)
	}
	got := mustGet(t, s, p.ID)
	if got.GateOut.SecretHash != "h2" {
		t.Errorf("SecretHash = %q, want h2", got.GateOut.SecretHash)
	}
	if got.GateOut.IssuedAt == nil || !got.GateOut.IssuedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("IssuedAt = %v", got.GateOut.IssuedAt)
	}
	if got.GateOut.State() != models.PassIssued || got.GateIn.State() != models.PassAbsent {
		t.Errorf("states = %s/%s", got.GateOut.State(), got.GateIn.State())
	}
	if _, _, err := s.FindBySecretHash(ctx, "h1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("superseded hash lookup err = %v, want ErrNotFound", err)
	}

	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "h2", t0.Add(2*time.Minute), 7); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := s.IssueSecret(ctx, p.ID, models.DirectionOut, "h3", t0.Add(3*time.Minute)); !errors.Is(err, store.ErrConflict) {
		t.Errorf("issue after verify err = %v, want ErrConflict", err)
	}
}

func testIssueRequiresApproved(t *testing.T, s store.Store) {
	p := &models.Permission{EmployeeID: 10, Status: models.PermissionStatusPending}
	if err := s.CreatePermission(context.Background(), p); err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	err := s.IssueSecret(context.Background(), p.ID, models.DirectionOut, "h", t0)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("issue on pending err = %v, want ErrConflict", err)
	}
	if err := s.IssueSecret(context.Background(), 999, models.DirectionOut, "h", t0); !errors.Is(err, store.ErrConflict) {
		t.Errorf("issue on missing err = %v, want ErrConflict", err)
	}
}

func testGateInRequiresGateOut(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := approved(t, s, 10)
	if err := s.IssueSecret(ctx, p.ID, models.DirectionIn, "in", t0); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("gate-in before gate-out err = %v, want ErrConflict", err)
	}
	_ = s.IssueSecret(ctx, p.ID, models.DirectionOut, "out", t0)
	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "out", t0, 7); err != nil {
		t.Fatalf("verify out: %v", err)
	}
	if err := s.IssueSecret(ctx, p.ID, models.DirectionIn, "in", t0.Add(6*time.Minute)); err != nil {
		t.Fatalf("gate-in after gate-out verified: %v", err)
	}
	if err := s.MarkVerified(ctx, p.ID, models.DirectionIn, "in", t0.Add(7*time.Minute), 8); err != nil {
		t.Fatalf("verify in: %v", err)
	}
	got := mustGet(t, s, p.ID)
	if !got.Completed() {
		t.Error("permission should be completed")
	}
	if got.GateIn.VerifiedBy == nil || *got.GateIn.VerifiedBy != 8 {
		t.Errorf("GateIn.VerifiedBy = %v, want 8", got.GateIn.VerifiedBy)
	}
}

func testVerifyOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := approved(t, s, 10)
	_ = s.IssueSecret(ctx, p.ID, models.DirectionOut, "out", t0)

	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "out", t0.Add(time.Minute), 7); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "out", t0.Add(2*time.Minute), 8); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second verify err = %v, want ErrConflict", err)
	}
	got := mustGet(t, s, p.ID)
	if got.GateOut.VerifiedAt == nil || !got.GateOut.VerifiedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("VerifiedAt changed: %v", got.GateOut.VerifiedAt)
	}
	if got.GateOut.VerifiedBy == nil || *got.GateOut.VerifiedBy != 7 {
		t.Errorf("VerifiedBy = %v, want 7", got.GateOut.VerifiedBy)
	}
}

func testVerifySuperseded(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := approved(t, s, 10)
	_ = s.IssueSecret(ctx, p.ID, models.DirectionOut, "old", t0)
	_ = s.IssueSecret(ctx, p.ID, models.DirectionOut, "new", t0.Add(time.Minute))

	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "old", t0.Add(2*time.Minute), 7); !errors.Is(err, store.ErrConflict) {
		t.Errorf("verify superseded err = %v, want ErrConflict", err)
	}
}

func testFind(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := approved(t, s, 10)
	b := approved(t, s, 11)
	_ = s.IssueSecret(ctx, a.ID, models.DirectionOut, "a-out", t0)
	_ = s.IssueSecret(ctx, b.ID, models.DirectionOut, "b-out", t0)
	_ = s.MarkVerified(ctx, b.ID, models.DirectionOut, "b-out", t0, 7)
	_ = s.IssueSecret(ctx, b.ID, models.DirectionIn, "b-in", t0.Add(10*time.Minute))

	tests := []struct {
		hash string
		id   uint
		dir  models.Direction
	}{
		{"a-out", a.ID, models.DirectionOut},
		{"b-out", b.ID, models.DirectionOut},
		{"b-in", b.ID, models.DirectionIn},
	}
	for _, tt := range tests {
		p, dir, err := s.FindBySecretHash(ctx, tt.hash)
		if err != nil {
			t.Fatalf("FindBySecretHash(%q): %v", tt.hash, err)
		}
		if p.ID != tt.id || dir != tt.dir {
			t.Errorf("FindBySecretHash(%q) = %d/%s, want %d/%s", tt.hash, p.ID, dir, tt.id, tt.dir)
		}
	}
	for _, h := range []string{"", "nope"} {
		if _, _, err := s.FindBySecretHash(ctx, h); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("FindBySecretHash(%q) err = %v, want ErrNotFound", h, err)
		}
	}
}
