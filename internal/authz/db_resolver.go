package authz

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/models"
)

// DBProfileResolver loads role profiles from the roles table.
type DBProfileResolver struct {
	DB *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve looks up the role by name, preloading its capabilities.
// An unknown role resolves to nil so that the policy fails closed.
func (r *DBProfileResolver) Resolve(ctx context.Context, role string) (Profile, error) {
	if role == "" {
		return nil, nil
	}
	var rec models.Role
	err := r.DB.WithContext(ctx).Preload("Capabilities").Where("name = ?", role).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve role %q: %w", role, err)
	}
	caps := make([]Capability, len(rec.Capabilities))
	for i, c := range rec.Capabilities {
		caps[i] = NewCapability(c.Resource, c.Action)
	}
	return NewStaticProfile(rec.Name, caps...), nil
}
