package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/domain"
)

type HiringRepo struct{ db *gorm.DB }

// 用户摘要只暴露少量字段
func userSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "email", "avatar_url")
}

func (r *HiringRepo) Create(ctx context.Context, h *domain.HiringRecord) error {
	return r.db.WithContext(ctx).Omit("Employee", "User", "Review").Create(h).Error
}

func (r *HiringRepo) FindOwned(ctx context.Context, id uint, userID string) (*domain.HiringRecord, error) {
	var h domain.HiringRecord
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("User", userSummary).
		Preload("Review").
		Where("id = ? AND user_id = ?", id, userID).
		First(&h).Error
	return notFoundAsNil(&h, err)
}

func (r *HiringRepo) FindCompleted(ctx context.Context, id uint, userID string, employeeID uint) (*domain.HiringRecord, error) {
	var h domain.HiringRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND ai_employee_id = ? AND status = ?",
			id, userID, employeeID, domain.HiringCompleted).
		First(&h).Error
	return notFoundAsNil(&h, err)
}

func (r *HiringRepo) Transition(ctx context.Context, id uint, userID string, from, to domain.HiringStatus, fields map[string]any) (bool, error) {
	upd := map[string]any{"status": to}
	for k, v := range fields {
		upd[k] = v
	}
	res := r.db.WithContext(ctx).Model(&domain.HiringRecord{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, from).
		Updates(upd)
	return res.RowsAffected == 1, res.Error
}

func (r *HiringRepo) List(ctx context.Context, f domain.HiringFilter) ([]domain.HiringRecord, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.HiringRecord{}).Where("user_id = ?", f.UserID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.HireType != "" {
		q = q.Where("hire_type = ?", f.HireType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	var out []domain.HiringRecord
	err := q.Preload("Employee").Preload("Review").
		Order(orderClause(sortBy, f.SortOrder)).Order("id DESC").
		Offset(f.Offset).Limit(f.Limit).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *HiringRepo) Stats(ctx context.Context, userID string) (domain.HiringStats, error) {
	var row struct {
		TotalHires int64
		TotalCost  float64
	}
	var st domain.HiringStats
	err := r.db.WithContext(ctx).Model(&domain.HiringRecord{}).
		Select("COUNT(*) AS total_hires, COALESCE(SUM(total_cost), 0) AS total_cost").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return st, err
	}
	st.TotalHires, st.TotalCost = row.TotalHires, row.TotalCost
	err = r.db.WithContext(ctx).Model(&domain.HiringRecord{}).
		Where("user_id = ? AND status = ?", userID, domain.HiringActive).
		Count(&st.ActiveCount).Error
	return st, err
}

func (r *HiringRepo) Recent(ctx context.Context, userID string, limit int) ([]domain.HiringRecord, error) {
	var out []domain.HiringRecord
	err := r.db.WithContext(ctx).Preload("Employee").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&out).Error
	return out, err
}

// PendingReview 已完成但尚未评价的记录
func (r *HiringRepo) PendingReview(ctx context.Context, userID string, limit int) ([]domain.HiringRecord, error) {
	var out []domain.HiringRecord
	err := r.db.WithContext(ctx).Preload("Employee").
		Where("user_id = ? AND status = ?", userID, domain.HiringCompleted).
		Where("NOT EXISTS (SELECT 1 FROM reviews WHERE reviews.hiring_record_id = hiring_records.id)").
		Order("end_date DESC").Order("id DESC").
		Limit(limit).Find(&out).Error
	return out, err
}
