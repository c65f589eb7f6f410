package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&models.Capability{},
		&models.Role{},
		&models.Account{},
		&models.Permission{},
	}
}

// Migrate brings the schema up to date. With sqlMigrations on a postgres
// connection the embedded SQL files are applied; otherwise gorm AutoMigrate
// is used.
func Migrate(db *gorm.DB, sqlMigrations bool) error {
	if sqlMigrations && db.Dialector.Name() == "postgres" {
		return MigrateSQL(db)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// MigrateSQL applies the embedded migrations with golang-migrate.
func MigrateSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	dbDriver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
