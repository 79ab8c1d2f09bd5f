package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

type ReviewRepo struct{ db *gorm.DB }

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Employee").Create(rv).Error)
}

func (r *ReviewRepo) FindByID(ctx context.Context, id uint) (*domain.Review, error) {
	var rv domain.Review
	err := r.db.WithContext(ctx).Preload("User", userSummary).Preload("Employee").
		First(&rv, "id = ?", id).Error
	return notFoundAsNil(&rv, err)
}

func (r *ReviewRepo) FindOwned(ctx context.Context, id uint, userID string) (*domain.Review, error) {
	var rv domain.Review
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rv).Error
	return notFoundAsNil(&rv, err)
}

func (r *ReviewRepo) ExistsForHiring(ctx context.Context, hiringID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Where("hiring_record_id = ?", hiringID).Count(&n).Error
	return n > 0, err
}

func (r *ReviewRepo) Update(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Review{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ReviewRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Review{}, id).Error
}

func (r *ReviewRepo) Ratings(ctx context.Context, employeeID uint) ([]int, error) {
	var out []int
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Where("ai_employee_id = ?", employeeID).Pluck("rating", &out).Error
	return out, err
}

func (r *ReviewRepo) Distribution(ctx context.Context, employeeID uint) (map[int]int64, error) {
	var rows []struct {
		Rating int
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Select("rating, COUNT(*) AS n").
		Where("ai_employee_id = ?", employeeID).
		Group("rating").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, row := range rows {
		out[row.Rating] = row.N
	}
	return out, nil
}

func (r *ReviewRepo) ListByEmployee(ctx context.Context, employeeID uint, offset, limit int) ([]domain.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Review{}).Where("ai_employee_id = ?", employeeID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Review
	err := q.Preload("User", userSummary).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (r *ReviewRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Review, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Review{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Review
	err := q.Preload("Employee").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (r *ReviewRepo) UserRatings(ctx context.Context, userID string) ([]int, error) {
	var out []int
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Where("user_id = ?", userID).Pluck("rating", &out).Error
	return out, err
}
