// Package service 业务核心：聘用生命周期、评价闸门、评分聚合及周边用例。
package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/cache"
	"github.com/Anlan01819/AIteammate/internal/core/events"
	"github.com/Anlan01819/AIteammate/internal/core/metrics"
	"github.com/Anlan01819/AIteammate/internal/domain"
)

var tracer = otel.Tracer("github.com/Anlan01819/AIteammate/internal/service")

// Deps 各 service 共享的基础设施
type Deps struct {
	Store  domain.Store
	Log    *zap.Logger
	Events events.Publisher
	Cache  *cache.Cache
	// 员工详情缓存 TTL
	EmployeeTTL time.Duration
}

func (d *Deps) normalize() {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.EmployeeTTL <= 0 {
		d.EmployeeTTL = 5 * time.Minute
	}
}

// publish 提交后发送，失败只记日志
func (d *Deps) publish(ctx context.Context, key string, payload any) {
	if err := d.Events.PublishJSON(ctx, key, payload); err != nil {
		metrics.EventPublishFailures.Inc()
		d.Log.Warn("publish event failed", zap.String("key", key), zap.Error(err))
	}
}

func (d *Deps) invalidateEmployee(ctx context.Context, id uint) {
	if err := d.Cache.Invalidate(ctx, cache.EmployeeKey(id)); err != nil {
		d.Log.Warn("invalidate employee cache failed", zap.Uint("employee_id", id), zap.Error(err))
	}
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// PageQuery 页码从 1 开始
type PageQuery struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

// normalize 校验并填默认值，返回 offset
func (q *PageQuery) normalize(defLimit, maxLimit int, ve *domain.ValidationError) int {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defLimit
	}
	bad := false
	if q.Page < 1 {
		ve.Add("page", "must be a positive integer")
		bad = true
	} else if q.Page > math.MaxInt/maxLimit {
		// 偏移量 (page-1)*limit 不得溢出
		ve.Add("page", "is too large")
		bad = true
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		ve.Add("limit", "must be between 1 and "+strconv.Itoa(maxLimit))
		bad = true
	}
	if bad {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

func (q PageQuery) pagination(total int64) Pagination {
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return Pagination{Page: q.Page, Limit: q.Limit, Total: total, TotalPages: pages}
}

// sortSpec 白名单排序，非法值返回字段错误
func sortSpec(sortBy, order string, allowed []string, ve *domain.ValidationError) (string, string) {
	if sortBy == "" {
		sortBy = "created_at"
	}
	ok := false
	for _, a := range allowed {
		if a == sortBy {
			ok = true
			break
		}
	}
	if !ok {
		ve.Add("sortBy", "must be one of "+strings.Join(allowed, ", "))
	}
	switch strings.ToLower(order) {
	case "", "desc":
		order = "desc"
	case "asc":
		order = "asc"
	default:
		ve.Add("sortOrder", "must be asc or desc")
	}
	return sortBy, order
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
