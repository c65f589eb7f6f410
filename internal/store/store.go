// Package store defines persistence for permissions and their gate passes.
//
// Every mutation is a conditional update: it applies only when the record
// still satisfies the guard the caller checked, and reports ErrConflict
// otherwise. Callers reload and decide what the conflict means.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/gatepass/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a guarded update matched no row.
	ErrConflict = errors.New("store: guarded update matched no row")
	// ErrConsistency is returned when the store observes a state its guards
	// should have made impossible, such as one update touching two rows.
	ErrConsistency = errors.New("store: consistency violation")
)

// Store defines the persistence interface for gate passes.
type Store interface {
	// CreatePermission inserts a permission. Used by seeding and tests; the
	// approval workflow owns permissions in production.
	CreatePermission(ctx context.Context, p *models.Permission) error
	// GetPermission loads a permission by id.
	GetPermission(ctx context.Context, id uint) (*models.Permission, error)
	// FindBySecretHash resolves a secret fingerprint to its permission and direction.
	FindBySecretHash(ctx context.Context, hash string) (*models.Permission, models.Direction, error)

	// IssueSecret replaces the secret of direction dir, guarded on the
	// permission being approved and the direction being unverified
	// (gate-in additionally requires gate-out verified).
	IssueSecret(ctx context.Context, id uint, dir models.Direction, hash string, issuedAt time.Time) error
	// MarkVerified consumes the secret of direction dir, guarded on the
	// permission being approved, the stored hash still matching and the
	// direction being unverified
	// (gate-in additionally requires gate-out verified).
	MarkVerified(ctx context.Context, id uint, dir models.Direction, hash string, at time.Time, by uint) error

	// Ping checks the backing storage is reachable.
	Ping(ctx context.Context) error
}
