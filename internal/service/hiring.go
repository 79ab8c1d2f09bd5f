package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/events"
	"github.com/Anlan01819/AIteammate/internal/core/metrics"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

type CreateHiringInput struct {
	AIEmployeeID    uint     `json:"ai_employee_id"`
	HireType        string   `json:"hire_type"`
	Rate            *float64 `json:"rate"`
	StartDate       string   `json:"start_date"`
	EndDate         *string  `json:"end_date"`
	TaskDescription *string  `json:"task_description"`
}

type UpdateStatusInput struct {
	Status    string   `json:"status"`
	TotalCost *float64 `json:"total_cost"`
}

type HiringListQuery struct {
	PageQuery
	Status    string `form:"status"`
	HireType  string `form:"hire_type"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type HiringPage struct {
	Records    []domain.HiringRecord `json:"records"`
	Pagination Pagination            `json:"pagination"`
}

type HiringStatistics struct {
	TotalHires    int64   `json:"totalHires"`
	TotalCost     float64 `json:"totalCost"`
	ActiveCount   int64   `json:"activeCount"`
	AverageRating float64 `json:"averageRating"`
}

// 聘用事件载荷
type hiringEvent struct {
	HiringID   uint                `json:"hiring_id"`
	UserID     string              `json:"user_id"`
	EmployeeID uint                `json:"ai_employee_id"`
	Status     domain.HiringStatus `json:"status"`
	TotalCost  *float64            `json:"total_cost,omitempty"`
	At         time.Time           `json:"at"`
}

var hiringSortable = []string{"created_at", "start_date", "rate", "status"}

// ISO8601 日期或完整时间戳
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (in *CreateHiringInput) validate() (start time.Time, end *time.Time, err error) {
	ve := &domain.ValidationError{}
	if in.AIEmployeeID == 0 {
		ve.Add("ai_employee_id", "must be a positive integer")
	}
	if !domain.HireType(in.HireType).Valid() {
		ve.Add("hire_type", "must be hourly or monthly")
	}
	if in.Rate == nil || *in.Rate < 0 {
		ve.Add("rate", "must be a non-negative number")
	}
	start, ok := parseDate(in.StartDate)
	if !ok {
		ve.Add("start_date", "must be an ISO8601 date")
	}
	if in.EndDate != nil && *in.EndDate != "" {
		t, ok := parseDate(*in.EndDate)
		switch {
		case !ok:
			ve.Add("end_date", "must be an ISO8601 date")
		case !start.IsZero() && t.Before(start):
			ve.Add("end_date", "must not be before start_date")
		default:
			end = &t
		}
	}
	return start, end, ve.OrNil()
}

// HiringService 聘用生命周期：创建时占用员工，进入终态时释放
type HiringService struct {
	Deps
}

func NewHiringService(d Deps) *HiringService {
	d.normalize()
	return &HiringService{Deps: d}
}

func (s *HiringService) Create(ctx context.Context, userID string, in CreateHiringInput) (*domain.HiringRecord, error) {
	ctx, span := tracer.Start(ctx, "hiring.create",
		trace.WithAttributes(attribute.Int64("employee.id", int64(in.AIEmployeeID))))
	defer span.End()

	start, end, err := in.validate()
	if err != nil {
		metrics.HiringRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	rec := &domain.HiringRecord{
		UserID:       userID,
		AIEmployeeID: in.AIEmployeeID,
		HireType:     domain.HireType(in.HireType),
		Rate:         *in.Rate,
		StartDate:    start,
		EndDate:      end,
		Status:       domain.HiringActive,
	}
	if in.TaskDescription != nil {
		rec.TaskDescription = strings.TrimSpace(*in.TaskDescription)
	}

	err = s.Store.Tx(ctx, func(tx domain.Store) error {
		// 条件更新抢占，失败即视为不存在或不可用
		ok, err := tx.Employees().Reserve(ctx, in.AIEmployeeID)
		if err != nil {
			return fmt.Errorf("reserve employee: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: ai employee not found or unavailable", domain.ErrNotFound)
		}
		if err := tx.Hirings().Create(ctx, rec); err != nil {
			return fmt.Errorf("create hiring record: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.HiringRejected.WithLabelValues("unavailable").Inc()
		}
		span.RecordError(err)
		return nil, err
	}

	metrics.HiringTransitions.WithLabelValues(string(domain.HiringActive)).Inc()
	s.invalidateEmployee(ctx, rec.AIEmployeeID)
	s.publish(ctx, events.HiringCreated, hiringEvent{
		HiringID: rec.ID, UserID: userID, EmployeeID: rec.AIEmployeeID,
		Status: rec.Status, At: rec.CreatedAt,
	})
	s.Log.Info("hiring created",
		zap.Uint("hiring_id", rec.ID), zap.String("user_id", userID), zap.Uint("employee_id", rec.AIEmployeeID))
	return s.Get(ctx, rec.ID, userID)
}

// UpdateStatus 只允许 active → completed / cancelled
func (s *HiringService) UpdateStatus(ctx context.Context, hiringID uint, userID string, in UpdateStatusInput) (*domain.HiringRecord, error) {
	ctx, span := tracer.Start(ctx, "hiring.update_status",
		trace.WithAttributes(attribute.Int64("hiring.id", int64(hiringID)), attribute.String("status", in.Status)))
	defer span.End()

	ve := &domain.ValidationError{}
	next, perr := domain.ParseHiringStatus(in.Status)
	if perr != nil {
		ve.Add("status", "must be one of active, completed, cancelled")
	}
	if in.TotalCost != nil && *in.TotalCost < 0 {
		ve.Add("total_cost", "must be a non-negative number")
	}
	if err := ve.OrNil(); err != nil {
		metrics.HiringRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	var employeeID uint
	var totalCost *float64
	err := s.Store.Tx(ctx, func(tx domain.Store) error {
		cur, err := tx.Hirings().FindOwned(ctx, hiringID, userID)
		if err != nil {
			return fmt.Errorf("load hiring record: %w", err)
		}
		if cur == nil {
			return fmt.Errorf("%w: hiring record", domain.ErrNotFound)
		}
		if !cur.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, next)
		}
		// 取消时的 total_cost 记录已产生的费用
		fields := map[string]any{}
		if next == domain.HiringCompleted {
			fields["end_date"] = time.Now().UTC()
		}
		if in.TotalCost != nil {
			fields["total_cost"] = *in.TotalCost
			totalCost = in.TotalCost
		}
		ok, err := tx.Hirings().Transition(ctx, hiringID, userID, cur.Status, next, fields)
		if err != nil {
			return fmt.Errorf("transition hiring record: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: hiring record changed concurrently", domain.ErrConflict)
		}
		employeeID = cur.AIEmployeeID
		if next.Terminal() {
			if err := tx.Employees().Release(ctx, cur.AIEmployeeID); err != nil {
				return fmt.Errorf("release employee: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition):
			metrics.HiringRejected.WithLabelValues("invalid_transition").Inc()
		case errors.Is(err, domain.ErrConflict):
			metrics.HiringRejected.WithLabelValues("conflict").Inc()
		}
		span.RecordError(err)
		return nil, err
	}

	metrics.HiringTransitions.WithLabelValues(string(next)).Inc()
	s.invalidateEmployee(ctx, employeeID)
	key := events.HiringCompleted
	if next == domain.HiringCancelled {
		key = events.HiringCancelled
	}
	s.publish(ctx, key, hiringEvent{
		HiringID: hiringID, UserID: userID, EmployeeID: employeeID,
		Status: next, TotalCost: totalCost, At: time.Now().UTC(),
	})
	return s.Get(ctx, hiringID, userID)
}

// Get 非本人记录与不存在同样返回 NotFound
func (s *HiringService) Get(ctx context.Context, hiringID uint, userID string) (*domain.HiringRecord, error) {
	rec, err := s.Store.Hirings().FindOwned(ctx, hiringID, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: hiring record", domain.ErrNotFound)
	}
	return rec, nil
}

func (s *HiringService) List(ctx context.Context, userID string, q HiringListQuery) (*HiringPage, error) {
	ve := &domain.ValidationError{}
	offset := q.normalize(10, 50, ve)
	f := domain.HiringFilter{UserID: userID, Offset: offset, Limit: q.Limit}
	if q.Status != "" {
		st, err := domain.ParseHiringStatus(q.Status)
		if err != nil {
			ve.Add("status", "must be one of active, completed, cancelled")
		}
		f.Status = st
	}
	if q.HireType != "" {
		if !domain.HireType(q.HireType).Valid() {
			ve.Add("hire_type", "must be hourly or monthly")
		}
		f.HireType = domain.HireType(q.HireType)
	}
	f.SortBy, f.SortOrder = sortSpec(q.SortBy, q.SortOrder, hiringSortable, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	recs, total, err := s.Store.Hirings().List(ctx, f)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.HiringRecord{}
	}
	return &HiringPage{Records: recs, Pagination: q.pagination(total)}, nil
}

func (s *HiringService) Statistics(ctx context.Context, userID string) (*HiringStatistics, error) {
	st, err := s.Store.Hirings().Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	ratings, err := s.Store.Reviews().UserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &HiringStatistics{
		TotalHires:    st.TotalHires,
		TotalCost:     round(st.TotalCost, 2),
		ActiveCount:   st.ActiveCount,
		AverageRating: round(mean(ratings), 1),
	}, nil
}
