// Package gormstore implements store.Store on gorm, for postgres in
// production and sqlite in development and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store"
)

// Store is a gorm-backed store.Store.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection. The permissions table must exist.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreatePermission(ctx context.Context, p *models.Permission) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, id uint) (*models.Permission, error) {
	var p models.Permission
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get permission %d: %w", id, err)
	}
	return &p, nil
}

func (s *Store) FindBySecretHash(ctx context.Context, hash string) (*models.Permission, models.Direction, error) {
	if hash == "" {
		return nil, "", store.ErrNotFound
	}
	var found []models.Permission
	err := s.db.WithContext(ctx).
		Where("gate_out_secret_hash = ? OR gate_in_secret_hash = ?", hash, hash).
		Limit(2).
		Find(&found).Error
	if err != nil {
		return nil, "", fmt.Errorf("find by secret: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, "", store.ErrNotFound
	case 1:
	default:
		return nil, "", fmt.Errorf("secret fingerprint on %d permissions: %w", len(found), store.ErrConsistency)
	}
	p := &found[0]
	out, in := p.GateOut.SecretHash == hash, p.GateIn.SecretHash == hash
	switch {
	case out && in:
		return nil, "", fmt.Errorf("permission %d: secret fingerprint on both directions: %w", p.ID, store.ErrConsistency)
	case out:
		return p, models.DirectionOut, nil
	default:
		return p, models.DirectionIn, nil
	}
}

func (s *Store) IssueSecret(ctx context.Context, id uint, dir models.Direction, hash string, issuedAt time.Time) error {
	if !dir.Valid() {
		return fmt.Errorf("issue secret: unknown direction %q", dir)
	}
	col := dir.Column()
	q := s.db.WithContext(ctx).Model(&models.Permission{}).
		Where("id = ? AND status = ?", id, models.PermissionStatusApproved).
		Where(col + "verified_at IS NULL")
	if dir == models.DirectionIn {
		q = q.Where("gate_out_verified_at IS NOT NULL")
	}
	res := q.Updates(map[string]any{
		col + "secret_hash": hash,
		col + "issued_at":   issuedAt,
	})
	return checkGuarded(res, "issue %s secret on permission %d", dir, id)
}

func (s *Store) MarkVerified(ctx context.Context, id uint, dir models.Direction, hash string, at time.Time, by uint) error {
	if !dir.Valid() {
		return fmt.Errorf("mark verified: unknown direction %q", dir)
	}
	col := dir.Column()
	q := s.db.WithContext(ctx).Model(&models.Permission{}).
		Where("id = ? AND status = ?", id, models.PermissionStatusApproved).
		Where(col+"secret_hash = ?", hash).
		Where(col + "verified_at IS NULL")
	if dir == models.DirectionIn {
		q = q.Where("gate_out_verified_at IS NOT NULL")
	}
	res := q.Updates(map[string]any{
		col + "verified_at": at,
		col + "verified_by": by,
	})
	return checkGuarded(res, "verify %s on permission %d", dir, id)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// checkGuarded maps the outcome of a conditional single-row update.
func checkGuarded(res *gorm.DB, format string, args ...any) error {
	if res.Error != nil {
		return fmt.Errorf(format+": %w", append(args, res.Error)...)
	}
	switch res.RowsAffected {
	case 1:
		return nil
	case 0:
		return store.ErrConflict
	default:
		return fmt.Errorf(format+": %d rows updated: %w", append(args, res.RowsAffected, store.ErrConsistency)...)
	}
}
