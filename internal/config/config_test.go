package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "GATEPASS_MIN_BUFFER", "PROFILE_CACHE_TTL", "NATS_URL", "MIGRATIONS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if cfg.App.MinBuffer != 5*time.Minute {
		t.Errorf("MinBuffer = %v", cfg.App.MinBuffer)
	}
	if cfg.App.NATSURL != "" || cfg.App.Migrations {
		t.Errorf("App = %+v", cfg.App)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/gp.db")
	t.Setenv("GATEPASS_MIN_BUFFER", "90s")
	t.Setenv("PROFILE_CACHE_TTL", "2")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Load()
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/gp.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.App.MinBuffer != 90*time.Second {
		t.Errorf("MinBuffer = %v", cfg.App.MinBuffer)
	}
	if cfg.App.ProfileCacheTTL != 2*time.Minute {
		t.Errorf("ProfileCacheTTL = %v", cfg.App.ProfileCacheTTL)
	}
	if !cfg.App.Migrations || cfg.App.NATSURL != "nats://localhost:4222" {
		t.Errorf("App = %+v", cfg.App)
	}
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("GATEPASS_MIN_BUFFER", "soon")
	if got := getEnvDuration("GATEPASS_MIN_BUFFER", time.Minute); got != time.Minute {
		t.Errorf("getEnvDuration = %v, want default", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"negative buffer", func(c *Config) { c.App.MinBuffer = -time.Minute }, "GATEPASS_MIN_BUFFER"},
		{"negative ttl", func(c *Config) { c.App.ProfileCacheTTL = -time.Second }, "PROFILE_CACHE_TTL"},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: "8080"},
				Database: DatabaseConfig{Driver: "postgres"},
				App:      AppConfig{MinBuffer: time.Minute},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestDatabaseConfig_Strings(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "g", SSLMode: "disable"}
	if got := d.DSN(); got != "host=db port=5433 user=u password=p dbname=g sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
	if got := d.URL(); got != "postgres://u:p@db:5433/g?sslmode=disable" {
		t.Errorf("URL() = %q", got)
	}
}
