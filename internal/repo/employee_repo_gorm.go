package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

type EmployeeRepo struct{ db *gorm.DB }

func (r *EmployeeRepo) Create(ctx context.Context, e *domain.AIEmployee) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *EmployeeRepo) FindByID(ctx context.Context, id uint) (*domain.AIEmployee, error) {
	var e domain.AIEmployee
	return notFoundAsNil(&e, r.db.WithContext(ctx).First(&e, "id = ?", id).Error)
}

func (r *EmployeeRepo) FindByNo(ctx context.Context, no string) (*domain.AIEmployee, error) {
	var e domain.AIEmployee
	return notFoundAsNil(&e, r.db.WithContext(ctx).First(&e, "employee_no = ?", no).Error)
}

func (r *EmployeeRepo) List(ctx context.Context, f domain.EmployeeFilter) ([]domain.AIEmployee, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.AIEmployee{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MinRate != nil {
		q = q.Where("hourly_rate >= ?", *f.MinRate)
	}
	if f.MaxRate != nil {
		q = q.Where("hourly_rate <= ?", *f.MaxRate)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	var out []domain.AIEmployee
	err := q.Order(orderClause(sortBy, f.SortOrder)).Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *EmployeeRepo) Featured(ctx context.Context, minRating float64, limit int) ([]domain.AIEmployee, error) {
	var out []domain.AIEmployee
	err := r.db.WithContext(ctx).
		Where("status = ? AND rating >= ?", domain.EmployeeAvailable, minRating).
		Order("rating DESC").Order("total_reviews DESC").
		Limit(limit).Find(&out).Error
	return out, err
}

func (r *EmployeeRepo) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.AIEmployee{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Reserve 单条条件更新，避免"先查后改"的双重聘用竞争
func (r *EmployeeRepo) Reserve(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.AIEmployee{}).
		Where("id = ? AND status = ?", id, domain.EmployeeAvailable).
		Update("status", domain.EmployeeBusy)
	return res.RowsAffected == 1, res.Error
}

func (r *EmployeeRepo) Release(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&domain.AIEmployee{}).
		Where("id = ?", id).
		Update("status", domain.EmployeeAvailable).Error
}

func (r *EmployeeRepo) SetRatingAggregate(ctx context.Context, id uint, rating float64, total int) error {
	return r.db.WithContext(ctx).Model(&domain.AIEmployee{}).
		Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "total_reviews": total}).Error
}
