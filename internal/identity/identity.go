// Package identity maps an authenticated account to the caller the
// authorization policy evaluates.
package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/models"
)

// ErrUnknownAccount is returned for an account id with no record.
var ErrUnknownAccount = errors.New("identity: unknown account")

// Resolver loads accounts with gorm and role profiles from profiles.
type Resolver struct {
	db       *gorm.DB
	profiles authz.ProfileResolver[string]
}

func NewResolver(db *gorm.DB, profiles authz.ProfileResolver[string]) *Resolver {
	return &Resolver{db: db, profiles: profiles}
}

// Resolve returns the caller for accountID. An account whose role is not
// known resolves with a nil Profile, which the policy denies.
func (r *Resolver) Resolve(ctx context.Context, accountID uint) (*authz.Caller, error) {
	var acc models.Account
	err := r.db.WithContext(ctx).First(&acc, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	profile, err := r.profiles.Resolve(ctx, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("resolve role of account %d: %w", accountID, err)
	}
	return &authz.Caller{
		ID:         acc.ID,
		EmployeeID: acc.EmployeeID,
		Role:       acc.Role,
		Profile:    profile,
	}, nil
}

// Exists reports whether accountID has a record. It backs the session verifier.
func (r *Resolver) Exists(ctx context.Context, accountID uint) bool {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
