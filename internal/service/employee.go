package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Anlan01819/AIteammate/internal/core/cache"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

const (
	featuredMinRating = 4.0
	featuredLimit     = 8
	detailReviewLimit = 10
)

var employeeSortable = []string{"created_at", "hourly_rate", "monthly_rate", "rating", "total_reviews", "name"}

type EmployeeListQuery struct {
	PageQuery
	Category  string   `form:"category"`
	MinRate   *float64 `form:"minRate"`
	MaxRate   *float64 `form:"maxRate"`
	Search    string   `form:"search"`
	Status    string   `form:"status"`
	SortBy    string   `form:"sortBy"`
	SortOrder string   `form:"sortOrder"`
}

type EmployeePage struct {
	Employees  []domain.AIEmployee `json:"employees"`
	Pagination Pagination          `json:"pagination"`
}

// EmployeeDetail 详情页：员工 + 最近评价
type EmployeeDetail struct {
	Employee      domain.AIEmployee `json:"employee"`
	RecentReviews []domain.Review   `json:"recentReviews"`
}

type CreateEmployeeInput struct {
	EmployeeNo  string   `json:"employee_id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	AvatarURL   string   `json:"avatar_url"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	HourlyRate  *float64 `json:"hourly_rate"`
	MonthlyRate *float64 `json:"monthly_rate"`
}

type EmployeeService struct {
	Deps
	agg *RatingAggregator
}

func NewEmployeeService(d Deps, agg *RatingAggregator) *EmployeeService {
	d.normalize()
	if agg == nil {
		agg = NewRatingAggregator(d.Log)
	}
	return &EmployeeService{Deps: d, agg: agg}
}

func (s *EmployeeService) List(ctx context.Context, q EmployeeListQuery) (*EmployeePage, error) {
	ve := &domain.ValidationError{}
	offset := q.normalize(12, 50, ve)
	f := domain.EmployeeFilter{
		Offset:   offset,
		Limit:    q.Limit,
		Category: strings.TrimSpace(q.Category),
		Search:   q.Search,
		MinRate:  q.MinRate,
		MaxRate:  q.MaxRate,
	}
	if q.MinRate != nil && *q.MinRate < 0 {
		ve.Add("minRate", "must be a non-negative number")
	}
	if q.MaxRate != nil && *q.MaxRate < 0 {
		ve.Add("maxRate", "must be a non-negative number")
	}
	switch st := domain.EmployeeStatus(q.Status); st {
	case "", domain.EmployeeAvailable, domain.EmployeeBusy:
		f.Status = st
	default:
		ve.Add("status", "must be available or busy")
	}
	f.SortBy, f.SortOrder = sortSpec(q.SortBy, q.SortOrder, employeeSortable, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	list, total, err := s.Store.Employees().List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &EmployeePage{Employees: nonNil(list), Pagination: q.pagination(total)}, nil
}

func (s *EmployeeService) Featured(ctx context.Context) ([]domain.AIEmployee, error) {
	list, err := s.Store.Employees().Featured(ctx, featuredMinRating, featuredLimit)
	return nonNil(list), err
}

// Get 走缓存；占用/释放和评分重算时失效
func (s *EmployeeService) Get(ctx context.Context, id uint) (*EmployeeDetail, error) {
	d, err := cache.GetOrLoadJSON[EmployeeDetail](s.Cache, ctx, cache.EmployeeKey(id), s.EmployeeTTL,
		func(ctx context.Context) (*EmployeeDetail, error) {
			e, err := s.Store.Employees().FindByID(ctx, id)
			if err != nil || e == nil {
				return nil, err
			}
			reviews, _, err := s.Store.Reviews().ListByEmployee(ctx, id, 0, detailReviewLimit)
			if err != nil {
				return nil, err
			}
			return &EmployeeDetail{Employee: *e, RecentReviews: nonNil(reviews)}, nil
		})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: ai employee", domain.ErrNotFound)
	}
	return d, nil
}

func (s *EmployeeService) Create(ctx context.Context, in CreateEmployeeInput) (*domain.AIEmployee, error) {
	ve := &domain.ValidationError{}
	no := strings.TrimSpace(in.EmployeeNo)
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if no == "" {
		ve.Add("employee_id", "is required")
	}
	if name == "" {
		ve.Add("name", "is required")
	}
	if category == "" {
		ve.Add("category", "is required")
	}
	if in.HourlyRate == nil || *in.HourlyRate < 0 {
		ve.Add("hourly_rate", "must be a non-negative number")
	}
	if in.MonthlyRate == nil || *in.MonthlyRate < 0 {
		ve.Add("monthly_rate", "must be a non-negative number")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	skills, err := json.Marshal(nonNil(in.Skills))
	if err != nil {
		return nil, err
	}
	e := &domain.AIEmployee{
		EmployeeNo:  no,
		Name:        name,
		Category:    category,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		Description: in.Description,
		Skills:      datatypes.JSON(skills),
		HourlyRate:  *in.HourlyRate,
		MonthlyRate: *in.MonthlyRate,
		Status:      domain.EmployeeAvailable,
	}
	if err := s.Store.Employees().Create(ctx, e); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Invalid("employee_id", "already exists")
		}
		return nil, err
	}
	s.Log.Info("ai employee created", zap.Uint("employee_id", e.ID), zap.String("employee_no", e.EmployeeNo))
	return e, nil
}

// RecomputeRating 管理端修复入口
func (s *EmployeeService) RecomputeRating(ctx context.Context, id uint) (*domain.AIEmployee, error) {
	err := s.Store.Tx(ctx, func(tx domain.Store) error {
		e, err := tx.Employees().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("%w: ai employee", domain.ErrNotFound)
		}
		_, _, err = s.agg.Recompute(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidateEmployee(ctx, id)
	return s.Store.Employees().FindByID(ctx, id)
}

// RecomputeAll 逐个员工重算，返回处理数量
func (s *EmployeeService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.Store.Employees().IDs(ctx)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.RecomputeRating(ctx, id); err != nil {
			return i, fmt.Errorf("employee %d: %w", id, err)
		}
	}
	return len(ids), nil
}
