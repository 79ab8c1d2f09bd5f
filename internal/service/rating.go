package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/metrics"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

// Aggregate 均值保留两位小数；无评价时为 0
func Aggregate(ratings []int) (float64, int) {
	return round(mean(ratings), 2), len(ratings)
}

func mean(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}

// RatingAggregator 从评价集合重算员工的 rating / total_reviews
type RatingAggregator struct {
	log *zap.Logger
}

func NewRatingAggregator(log *zap.Logger) *RatingAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &RatingAggregator{log: log}
}

// Recompute 在传入的 store 上执行，调用方负责把它放进评价变更的同一事务
func (a *RatingAggregator) Recompute(ctx context.Context, store domain.Store, employeeID uint) (float64, int, error) {
	ctx, span := tracer.Start(ctx, "rating.recompute",
		trace.WithAttributes(attribute.Int64("employee.id", int64(employeeID))))
	defer span.End()

	ratings, err := store.Reviews().Ratings(ctx, employeeID)
	if err != nil {
		return a.fail(span, employeeID, fmt.Errorf("load ratings: %w", err))
	}
	rating, total := Aggregate(ratings)
	if err := store.Employees().SetRatingAggregate(ctx, employeeID, rating, total); err != nil {
		return a.fail(span, employeeID, fmt.Errorf("save rating aggregate: %w", err))
	}
	metrics.RatingRecomputes.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("rating", rating), attribute.Int("total_reviews", total))
	return rating, total, nil
}

func (a *RatingAggregator) fail(span trace.Span, employeeID uint, err error) (float64, int, error) {
	metrics.RatingRecomputes.WithLabelValues("error").Inc()
	span.RecordError(err)
	a.log.Warn("rating recompute failed", zap.Uint("employee_id", employeeID), zap.Error(err))
	return 0, 0, err
}
