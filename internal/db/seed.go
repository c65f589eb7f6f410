package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/models"
)

// RoleSpec describes a role and its capabilities in "resource:action" form.
type RoleSpec struct {
	Name         string   `toml:"name"`
	Description  string   `toml:"description"`
	Capabilities []string `toml:"capabilities"`
}

type rolesFile struct {
	Roles []RoleSpec `toml:"role"`
}

// Role names seeded by default.
const (
	RoleEmployee = "employee"
	RoleSecurity = "security"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

// DefaultRoles is used when no roles file is configured. HR may see
// permissions but holds no gate pass capability.
func DefaultRoles() []RoleSpec {
	return []RoleSpec{
		{Name: RoleAdmin, Description: "Full system access", Capabilities: []string{"*:*"}},
		{Name: RoleEmployee, Description: "Requests gate passes for own permissions", Capabilities: []string{"gatepass:request"}},
		{Name: RoleSecurity, Description: "Scans gate passes at the gate", Capabilities: []string{"gatepass:verify"}},
		{Name: RoleHR, Description: "Reviews permissions", Capabilities: []string{"permission:view"}},
	}
}

// LoadRoles parses a TOML roles file:
//
//	[[role]]
//	name = "security"
//	capabilities = ["gatepass:verify"]
func LoadRoles(path string) ([]RoleSpec, error) {
	var f rolesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("read roles file %s: %w", path, err)
	}
	if err := validateRoles(f.Roles); err != nil {
		return nil, fmt.Errorf("roles file %s: %w", path, err)
	}
	return f.Roles, nil
}

// ParseRoles is LoadRoles over an in-memory document.
func ParseRoles(doc string) ([]RoleSpec, error) {
	var f rolesFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	if err := validateRoles(f.Roles); err != nil {
		return nil, err
	}
	return f.Roles, nil
}

func validateRoles(roles []RoleSpec) error {
	if len(roles) == 0 {
		return errors.New("no roles defined")
	}
	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("role without name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate role %q", r.Name)
		}
		seen[r.Name] = true
		for _, c := range r.Capabilities {
			if _, _, ok := splitCapability(c); !ok {
				return fmt.Errorf("role %q: capability %q is not resource:action", r.Name, c)
			}
		}
	}
	return nil
}

func splitCapability(code string) (resource, action string, ok bool) {
	resource, action, ok = strings.Cut(code, ":")
	return resource, action, ok && resource != "" && action != ""
}

// Seed creates or updates roles and their capabilities. Running it again
// with the same input changes nothing; a role's capability set is replaced
// by the one given.
func Seed(db *gorm.DB, roles []RoleSpec) error {
	if roles == nil {
		roles = DefaultRoles()
	}
	if err := validateRoles(roles); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, spec := range roles {
			var role models.Role
			err := tx.Where("name = ?", spec.Name).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				role = models.Role{Name: spec.Name, Description: spec.Description, IsSystem: true}
				if err := tx.Create(&role).Error; err != nil {
					return fmt.Errorf("create role %s: %w", spec.Name, err)
				}
			} else if err != nil {
				return fmt.Errorf("load role %s: %w", spec.Name, err)
			}

			caps := make([]models.Capability, 0, len(spec.Capabilities))
			for _, code := range spec.Capabilities {
				resource, action, _ := splitCapability(code)
				c := models.Capability{Resource: resource, Action: action}
				if err := tx.Where("resource = ? AND action = ?", resource, action).FirstOrCreate(&c).Error; err != nil {
					return fmt.Errorf("capability %s: %w", code, err)
				}
				caps = append(caps, c)
			}
			if err := tx.Model(&role).Association("Capabilities").Replace(caps); err != nil {
				return fmt.Errorf("assign capabilities to %s: %w", spec.Name, err)
			}
		}
		return nil
	})
}

// Demo holds the records created by SeedDemo.
type Demo struct {
	Employee   models.Account
	Colleague  models.Account
	Guard      models.Account
	Permission models.Permission
}

// SeedDemo creates two employees, a guard device and one approved
// permission for the first employee, for local runs.
func SeedDemo(db *gorm.DB, now time.Time) (*Demo, error) {
	d := &Demo{
		Employee:  models.Account{Name: "demo employee", EmployeeID: 1001, Role: RoleEmployee},
		Colleague: models.Account{Name: "demo colleague", EmployeeID: 1002, Role: RoleEmployee},
		Guard:     models.Account{Name: "main gate scanner", Role: RoleSecurity},
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, acc := range []*models.Account{&d.Employee, &d.Colleague, &d.Guard} {
			if err := tx.Create(acc).Error; err != nil {
				return fmt.Errorf("create account %s: %w", acc.Name, err)
			}
		}
		d.Permission = models.Permission{
			EmployeeID:  d.Employee.EmployeeID,
			RequestedBy: d.Employee.ID,
			Window:      models.Window{Start: now, End: now.Add(2 * time.Hour), Hours: 2},
			Status:      models.PermissionStatusApproved,
			Reason:      "demo short leave",
		}
		if err := tx.Create(&d.Permission).Error; err != nil {
			return fmt.Errorf("create permission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
