// Package memstore is an in-memory store.Store. A single mutex serializes
// all access, so its guarded updates are atomic in the same way as the SQL
// conditional updates of gormstore.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store"
)

type Store struct {
	mu     sync.Mutex
	nextID uint
	perms  map[uint]*models.Permission
}

func New() *Store {
	return &Store{perms: make(map[uint]*models.Permission)}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreatePermission(_ context.Context, p *models.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	} else if _, exists := s.perms[p.ID]; exists {
		return fmt.Errorf("create permission %d: duplicate id", p.ID)
	}
	if p.ID > s.nextID {
		s.nextID = p.ID
	}
	s.perms[p.ID] = clone(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, id uint) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) FindBySecretHash(_ context.Context, hash string) (*models.Permission, models.Direction, error) {
	if hash == "" {
		return nil, "", store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		found *models.Permission
		dir   models.Direction
	)
	for _, p := range s.perms {
		for _, d := range []models.Direction{models.DirectionOut, models.DirectionIn} {
			if p.Pass(d).SecretHash != hash {
				continue
			}
			if found != nil {
				return nil, "", fmt.Errorf("secret fingerprint seen twice: %w", store.ErrConsistency)
			}
			found, dir = p, d
		}
	}
	if found == nil {
		return nil, "", store.ErrNotFound
	}
	return clone(found), dir, nil
}

func (s *Store) IssueSecret(_ context.Context, id uint, dir models.Direction, hash string, issuedAt time.Time) error {
	if !dir.Valid() {
		return fmt.Errorf("issue secret: unknown direction %q", dir)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	if !ok || !p.IsApproved() || p.Pass(dir).Verified() {
		return store.ErrConflict
	}
	if dir == models.DirectionIn && !p.GateOut.Verified() {
		return store.ErrConflict
	}
	g := p.Pass(dir)
	g.SecretHash = hash
	g.IssuedAt = &issuedAt
	p.SetPass(dir, g)
	p.UpdatedAt = issuedAt
	return nil
}

func (s *Store) MarkVerified(_ context.Context, id uint, dir models.Direction, hash string, at time.Time, by uint) error {
	if !dir.Valid() {
		return fmt.Errorf("mark verified: unknown direction %q", dir)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	if !ok || !p.IsApproved() {
		return store.ErrConflict
	}
	g := p.Pass(dir)
	if g.SecretHash != hash || g.Verified() {
		return store.ErrConflict
	}
	if dir == models.DirectionIn && !p.GateOut.Verified() {
		return store.ErrConflict
	}
	g.VerifiedAt = &at
	g.VerifiedBy = &by
	p.SetPass(dir, g)
	p.UpdatedAt = at
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// SetStatus changes a permission's approval status, standing in for the
// approval workflow in tests.
func (s *Store) SetStatus(id uint, status models.PermissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = status
	return nil
}

func clone(p *models.Permission) *models.Permission {
	c := *p
	c.GateOut = clonePass(p.GateOut)
	c.GateIn = clonePass(p.GateIn)
	return &c
}

func clonePass(g models.GatePass) models.GatePass {
	return models.GatePass{
		SecretHash: g.SecretHash,
		IssuedAt:   cloneTime(g.IssuedAt),
		VerifiedAt: cloneTime(g.VerifiedAt),
		VerifiedBy: cloneUint(g.VerifiedBy),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUint(u *uint) *uint {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}
