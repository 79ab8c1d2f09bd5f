// Package testutil 测试用内存库与种子数据
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/core/database"
	"github.com/Anlan01819/AIteammate/internal/domain"
	"github.com/Anlan01819/AIteammate/internal/repo"
	"github.com/Anlan01819/AIteammate/pkg/utils"
)

var seq atomic.Int64

// NewDB 单连接内存 sqlite，已迁移；事务内只能用 tx 句柄
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func NewStore(t testing.TB) *repo.Store { return repo.NewStore(NewDB(t)) }

func SeedUser(t testing.TB, s domain.Store, role string) *domain.User {
	t.Helper()
	n := seq.Add(1)
	hash, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        fmt.Sprintf("user%d@example.com", n),
		Username:     fmt.Sprintf("user%d", n),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedEmployee(t testing.TB, s domain.Store, mut ...func(*domain.AIEmployee)) *domain.AIEmployee {
	t.Helper()
	n := seq.Add(1)
	e := &domain.AIEmployee{
		EmployeeNo:  fmt.Sprintf("AI-%04d", n),
		Name:        fmt.Sprintf("Agent %d", n),
		Category:    "writing",
		Description: "general purpose assistant",
		Skills:      datatypes.JSON(`["writing","research"]`),
		HourlyRate:  50,
		MonthlyRate: 6000,
		Status:      domain.EmployeeAvailable,
	}
	for _, m := range mut {
		m(e)
	}
	if err := s.Employees().Create(context.Background(), e); err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	return e
}

// SeedHiring 直接落库，不经过占用流程
func SeedHiring(t testing.TB, s domain.Store, userID string, employeeID uint, status domain.HiringStatus) *domain.HiringRecord {
	t.Helper()
	h := &domain.HiringRecord{
		UserID:       userID,
		AIEmployeeID: employeeID,
		HireType:     domain.HireHourly,
		Rate:         50,
		StartDate:    time.Now().UTC(),
		Status:       status,
	}
	if status.Terminal() {
		end := time.Now().UTC()
		h.EndDate = &end
	}
	if err := s.Hirings().Create(context.Background(), h); err != nil {
		t.Fatalf("seed hiring: %v", err)
	}
	return h
}
