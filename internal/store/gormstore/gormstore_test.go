package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/gatepass/internal/models"
	"github.com/diewo77/gatepass/internal/store"
	"github.com/diewo77/gatepass/internal/store/storetest"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Permission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New(setupSQLite(t)) })
}

func TestVerifyBlockedAfterCancel(t *testing.T) {
	db := setupSQLite(t)
	s := New(db)
	ctx := context.Background()

	p := &models.Permission{EmployeeID: 1, Status: models.PermissionStatusApproved}
	if err := s.CreatePermission(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.IssueSecret(ctx, p.ID, models.DirectionOut, "h", time.Now()); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := db.Model(&models.Permission{}).Where("id = ?", p.ID).
		Update("status", models.PermissionStatusCancelled).Error; err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.MarkVerified(ctx, p.ID, models.DirectionOut, "h", time.Now(), 2); !errors.Is(err, store.ErrConflict) {
		t.Errorf("verify on cancelled err = %v, want ErrConflict", err)
	}
}

func TestPing(t *testing.T) {
	s := New(setupSQLite(t))
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// newMockGorm opens gorm with the postgres dialect over sqlmock.
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		sqlDB.Close()
	})
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db, mock
}

func TestIssueSecret_PostgresGuards(t *testing.T) {
	tests := []struct {
		name    string
		dir     models.Direction
		pattern string
		rows    int64
		wantErr error
	}{
		{
			name:    "gate-out applied",
			dir:     models.DirectionOut,
			pattern: `UPDATE "permissions" SET .*"gate_out_secret_hash".* WHERE .*status = .*gate_out_verified_at IS NULL`,
			rows:    1,
		},
		{
			name:    "gate-out conflict",
			dir:     models.DirectionOut,
			pattern: `UPDATE "permissions" SET .* WHERE .*gate_out_verified_at IS NULL`,
			rows:    0,
			wantErr: store.ErrConflict,
		},
		{
			name:    "gate-in requires gate-out verified",
			dir:     models.DirectionIn,
			pattern: `UPDATE "permissions" SET .*"gate_in_secret_hash".* WHERE .*gate_in_verified_at IS NULL.*gate_out_verified_at IS NOT NULL`,
			rows:    1,
		},
		{
			name:    "two rows is a consistency violation",
			dir:     models.DirectionOut,
			pattern: `UPDATE "permissions" SET`,
			rows:    2,
			wantErr: store.ErrConsistency,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockGorm(t)
			mock.ExpectExec(tt.pattern).WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := New(db).IssueSecret(context.Background(), 5, tt.dir, "hash", time.Now())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("IssueSecret: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("IssueSecret err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarkVerified_PostgresGuards(t *testing.T) {
	db, mock := newMockGorm(t)
	mock.ExpectExec(`UPDATE "permissions" SET .*"gate_out_verified_at".* WHERE .*gate_out_secret_hash = .*gate_out_verified_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := New(db).MarkVerified(context.Background(), 5, models.DirectionOut, "hash", time.Now(), 9)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("MarkVerified err = %v, want ErrConflict", err)
	}
}

func TestMarkVerified_DriverError(t *testing.T) {
	db, mock := newMockGorm(t)
	mock.ExpectExec(`UPDATE "permissions"`).WillReturnError(sql.ErrConnDone)

	err := New(db).MarkVerified(context.Background(), 5, models.DirectionIn, "hash", time.Now(), 9)
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("MarkVerified err = %v, want wrapped ErrConnDone", err)
	}
	if errors.Is(err, store.ErrConflict) {
		t.Error("driver failure must not look like a conflict")
	}
}

func TestUnknownDirection(t *testing.T) {
	db, _ := newMockGorm(t)
	s := New(db)
	if err := s.IssueSecret(context.Background(), 1, "sideways", "h", time.Now()); err == nil {
		t.Error("IssueSecret accepted unknown direction")
	}
	if err := s.MarkVerified(context.Background(), 1, "sideways", "h", time.Now(), 1); err == nil {
		t.Error("MarkVerified accepted unknown direction")
	}
}
