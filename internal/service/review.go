package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Anlan01819/AIteammate/internal/core/events"
	"github.com/Anlan01819/AIteammate/internal/core/metrics"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

const maxCommentLen = 2000

type CreateReviewInput struct {
	AIEmployeeID   uint    `json:"ai_employee_id" binding:"required"`
	HiringRecordID uint    `json:"hiring_record_id" binding:"required"`
	Rating         int     `json:"rating" binding:"required,min=1,max=5"`
	Comment        *string `json:"comment"`
}

type UpdateReviewInput struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

type ReviewStatistics struct {
	AverageRating      float64       `json:"averageRating"`
	TotalReviews       int64         `json:"totalReviews"`
	RatingDistribution map[int]int64 `json:"ratingDistribution"`
}

type EmployeeReviews struct {
	Reviews    []domain.Review  `json:"reviews"`
	Pagination Pagination       `json:"pagination"`
	Statistics ReviewStatistics `json:"statistics"`
}

type ReviewPage struct {
	Reviews    []domain.Review `json:"reviews"`
	Pagination Pagination      `json:"pagination"`
}

type reviewEvent struct {
	ReviewID     uint      `json:"review_id"`
	UserID       string    `json:"user_id"`
	EmployeeID   uint      `json:"ai_employee_id"`
	Rating       int       `json:"rating,omitempty"`
	EmployeeRate float64   `json:"employee_rating"`
	TotalReviews int       `json:"total_reviews"`
	At           time.Time `json:"at"`
}

func validateRating(rating int, comment *string, ve *domain.ValidationError) *string {
	if rating < domain.MinRating || rating > domain.MaxRating {
		ve.Add("rating", "must be an integer between 1 and 5")
	}
	if comment == nil {
		return nil
	}
	c := strings.TrimSpace(*comment)
	if utf8.RuneCountInString(c) > maxCommentLen {
		ve.Add("comment", "is too long")
	}
	if c == "" {
		return nil
	}
	return &c
}

// ReviewService 评价闸门 + 同事务重算评分
type ReviewService struct {
	Deps
	agg *RatingAggregator
}

func NewReviewService(d Deps, agg *RatingAggregator) *ReviewService {
	d.normalize()
	if agg == nil {
		agg = NewRatingAggregator(d.Log)
	}
	return &ReviewService{Deps: d, agg: agg}
}

// Create 仅允许对本人、对应员工、已完成且未评价的聘用记录评价
func (s *ReviewService) Create(ctx context.Context, userID string, in CreateReviewInput) (*domain.Review, error) {
	ctx, span := tracer.Start(ctx, "review.create", trace.WithAttributes(
		attribute.Int64("employee.id", int64(in.AIEmployeeID)),
		attribute.Int64("hiring.id", int64(in.HiringRecordID))))
	defer span.End()

	ve := &domain.ValidationError{}
	if in.AIEmployeeID == 0 {
		ve.Add("ai_employee_id", "must be a positive integer")
	}
	if in.HiringRecordID == 0 {
		ve.Add("hiring_record_id", "must be a positive integer")
	}
	comment := validateRating(in.Rating, in.Comment, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	rv := &domain.Review{
		UserID:         userID,
		AIEmployeeID:   in.AIEmployeeID,
		HiringRecordID: in.HiringRecordID,
		Rating:         in.Rating,
		Comment:        comment,
	}
	var rating float64
	var total int
	err := s.Store.Tx(ctx, func(tx domain.Store) error {
		h, err := tx.Hirings().FindCompleted(ctx, in.HiringRecordID, userID, in.AIEmployeeID)
		if err != nil {
			return fmt.Errorf("load hiring record: %w", err)
		}
		if h == nil {
			return fmt.Errorf("%w: record must be yours, for this employee, and completed", domain.ErrInvalidReference)
		}
		exists, err := tx.Reviews().ExistsForHiring(ctx, in.HiringRecordID)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if exists {
			return domain.ErrDuplicateReview
		}
		if err := tx.Reviews().Create(ctx, rv); err != nil {
			// 唯一索引兜底并发重复提交
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.ErrDuplicateReview
			}
			return fmt.Errorf("create review: %w", err)
		}
		rating, total, err = s.agg.Recompute(ctx, tx, in.AIEmployeeID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.afterMutation(ctx, "create", events.ReviewCreated, rv, rating, total)
	return s.reload(ctx, rv.ID)
}

func (s *ReviewService) Update(ctx context.Context, reviewID uint, userID string, in UpdateReviewInput) (*domain.Review, error) {
	ctx, span := tracer.Start(ctx, "review.update",
		trace.WithAttributes(attribute.Int64("review.id", int64(reviewID))))
	defer span.End()

	ve := &domain.ValidationError{}
	comment := validateRating(in.Rating, in.Comment, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	var rv *domain.Review
	var rating float64
	var total int
	err := s.Store.Tx(ctx, func(tx domain.Store) error {
		var err error
		rv, err = s.owned(ctx, tx, reviewID, userID)
		if err != nil {
			return err
		}
		// 未传 comment 保留原值；传空串表示清空
		fields := map[string]any{"rating": in.Rating}
		if in.Comment != nil {
			fields["comment"] = comment
			rv.Comment = comment
		}
		if err := tx.Reviews().Update(ctx, reviewID, fields); err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		rv.Rating = in.Rating
		rating, total, err = s.agg.Recompute(ctx, tx, rv.AIEmployeeID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.afterMutation(ctx, "update", events.ReviewUpdated, rv, rating, total)
	return s.reload(ctx, reviewID)
}

func (s *ReviewService) Delete(ctx context.Context, reviewID uint, userID string) error {
	ctx, span := tracer.Start(ctx, "review.delete",
		trace.WithAttributes(attribute.Int64("review.id", int64(reviewID))))
	defer span.End()

	var rv *domain.Review
	var rating float64
	var total int
	err := s.Store.Tx(ctx, func(tx domain.Store) error {
		var err error
		rv, err = s.owned(ctx, tx, reviewID, userID)
		if err != nil {
			return err
		}
		if err := tx.Reviews().Delete(ctx, reviewID); err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		rating, total, err = s.agg.Recompute(ctx, tx, rv.AIEmployeeID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.afterMutation(ctx, "delete", events.ReviewDeleted, rv, rating, total)
	return nil
}

func (s *ReviewService) owned(ctx context.Context, tx domain.Store, reviewID uint, userID string) (*domain.Review, error) {
	rv, err := tx.Reviews().FindOwned(ctx, reviewID, userID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	if rv == nil {
		return nil, fmt.Errorf("%w: review", domain.ErrNotFound)
	}
	return rv, nil
}

func (s *ReviewService) afterMutation(ctx context.Context, op, key string, rv *domain.Review, rating float64, total int) {
	metrics.ReviewMutations.WithLabelValues(op).Inc()
	s.invalidateEmployee(ctx, rv.AIEmployeeID)
	ev := reviewEvent{
		ReviewID: rv.ID, UserID: rv.UserID, EmployeeID: rv.AIEmployeeID,
		EmployeeRate: rating, TotalReviews: total, At: time.Now().UTC(),
	}
	if op != "delete" {
		ev.Rating = rv.Rating
	}
	s.publish(ctx, key, ev)
}

func (s *ReviewService) reload(ctx context.Context, id uint) (*domain.Review, error) {
	rv, err := s.Store.Reviews().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv == nil {
		return nil, fmt.Errorf("%w: review", domain.ErrNotFound)
	}
	return rv, nil
}

// ListByEmployee 分页评价 + 评分统计（分布 1..5 全量给出）
func (s *ReviewService) ListByEmployee(ctx context.Context, employeeID uint, q PageQuery) (*EmployeeReviews, error) {
	ve := &domain.ValidationError{}
	offset := q.normalize(10, 50, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	reviews, total, err := s.Store.Reviews().ListByEmployee(ctx, employeeID, offset, q.Limit)
	if err != nil {
		return nil, err
	}
	dist, err := s.Store.Reviews().Distribution(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	stats := ReviewStatistics{RatingDistribution: make(map[int]int64, domain.MaxRating)}
	var sum int64
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		n := dist[r]
		stats.RatingDistribution[r] = n
		stats.TotalReviews += n
		sum += int64(r) * n
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = round(float64(sum)/float64(stats.TotalReviews), 1)
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &EmployeeReviews{Reviews: reviews, Pagination: q.pagination(total), Statistics: stats}, nil
}

func (s *ReviewService) ListMine(ctx context.Context, userID string, q PageQuery) (*ReviewPage, error) {
	ve := &domain.ValidationError{}
	offset := q.normalize(10, 50, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	reviews, total, err := s.Store.Reviews().ListByUser(ctx, userID, offset, q.Limit)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return &ReviewPage{Reviews: reviews, Pagination: q.pagination(total)}, nil
}
