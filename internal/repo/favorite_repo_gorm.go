package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

type FavoriteRepo struct{ db *gorm.DB }

func (r *FavoriteRepo) Create(ctx context.Context, f *domain.Favorite) error {
	return translate(r.db.WithContext(ctx).Omit("Employee").Create(f).Error)
}

func (r *FavoriteRepo) Exists(ctx context.Context, userID string, employeeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND ai_employee_id = ?", userID, employeeID).Count(&n).Error
	return n > 0, err
}

func (r *FavoriteRepo) Delete(ctx context.Context, userID string, employeeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND ai_employee_id = ?", userID, employeeID).
		Delete(&domain.Favorite{})
	return res.RowsAffected > 0, res.Error
}

func (r *FavoriteRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Favorite, error) {
	var out []domain.Favorite
	q := r.db.WithContext(ctx).Preload("Employee").
		Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return out, q.Find(&out).Error
}
