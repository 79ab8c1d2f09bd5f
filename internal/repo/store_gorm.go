package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

// Models 需要迁移的全部表（按依赖顺序）
func Models() []any {
	return []any{
		&domain.User{},
		&domain.AIEmployee{},
		&domain.HiringRecord{},
		&domain.Review{},
		&domain.Favorite{},
	}
}

func Migrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }

// Store gorm 实现；db 可能是事务句柄
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Users() domain.UserRepository         { return &UserRepo{db: s.db} }
func (s *Store) Employees() domain.EmployeeRepository { return &EmployeeRepo{db: s.db} }
func (s *Store) Hirings() domain.HiringRepository     { return &HiringRepo{db: s.db} }
func (s *Store) Reviews() domain.ReviewRepository     { return &ReviewRepo{db: s.db} }
func (s *Store) Favorites() domain.FavoriteRepository { return &FavoriteRepo{db: s.db} }

func (s *Store) Tx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// IsDupKey 唯一约束冲突
func IsDupKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 驱动未翻译时兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

// translate 唯一冲突统一成 domain.ErrDuplicate，保留原始错误链
func translate(err error) error {
	if IsDupKey(err) {
		return fmt.Errorf("%w: %w", domain.ErrDuplicate, err)
	}
	return err
}

func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func orderClause(col, dir string) string {
	if strings.EqualFold(dir, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}
