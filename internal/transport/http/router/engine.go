package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/core/server"
	mdw "github.com/Anlan01819/AIteammate/internal/transport/http/middleware"
	resp "github.com/Anlan01819/AIteammate/internal/transport/http/response"
)

// Options 两个引擎共用的装配参数
type Options struct {
	Name     string
	Mode     string
	Logger   *zap.Logger
	JWT      *auth.JWTer
	Users    mdw.UserResolver
	Registry *Registry
	Limits   config.Limits
	// Ready 健康检查依赖探测（DB/Redis），nil 表示只报存活
	Ready func(ctx context.Context) error
}

func newEngine(o Options) *gin.Engine {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	r := server.NewRouter(server.Options{Name: o.Name, Mode: o.Mode})

	lim := o.Limits
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(o.Logger),
		mdw.Trace(o.Name),
		mdw.Metrics(o.Name),
		mdw.AccessLog(o.Logger),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
	)
	if lim.PerIPRPS > 0 {
		r.Use(mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst, lim.PerIPMaxClients, 10*time.Minute))
	}
	if lim.MaxConcurrency > 0 {
		r.Use(mdw.ConcurrencyLimit(lim.MaxConcurrency, time.Duration(lim.QueueWaitMs)*time.Millisecond))
	}
	if lim.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(lim.MaxBodyBytes))
	}
	r.Use(mdw.Timeout(time.Duration(lim.RequestTimeoutSec) * time.Second))

	r.GET("/health", health(o.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) { resp.Abort(c, resp.CodeNotFound, "route not found") })
	return r
}

func health(ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	}
}
