// Package app 装配各进程共用的依赖：日志、数据库、缓存、事件、追踪和业务服务。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/Anlan01819/AIteammate/internal/core/auth"
	"github.com/Anlan01819/AIteammate/internal/core/cache"
	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/core/database"
	"github.com/Anlan01819/AIteammate/internal/core/events"
	"github.com/Anlan01819/AIteammate/internal/core/logger"
	"github.com/Anlan01819/AIteammate/internal/core/obs"
	"github.com/Anlan01819/AIteammate/internal/core/server"
	"github.com/Anlan01819/AIteammate/internal/repo"
	"github.com/Anlan01819/AIteammate/internal/service"
	"github.com/Anlan01819/AIteammate/internal/transport/http/handler"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Store  *repo.Store
	Cache  *cache.Cache
	Events events.Publisher
	JWT    *auth.JWTer

	Users     *service.UserService
	Employees *service.EmployeeService
	Hiring    *service.HiringService
	Reviews   *service.ReviewService
	Favorites *service.FavoriteService

	closers []func()
}

// NewLogger 按配置构建日志，service 作为固定字段
func NewLogger(c config.Log, service string) (*zap.Logger, func()) {
	return logger.New(logger.Options{
		Level:            c.Level,
		JSON:             c.JSON,
		Service:          service,
		File:             c.File,
		MaxSizeMB:        c.MaxSizeMB,
		MaxBackups:       c.MaxBackups,
		MaxAgeDays:       c.MaxAgeDays,
		Compress:         c.Compress,
		SampleFirst:      100,
		SampleThereafter: 100,
	})
}

// New 打开数据库及外部依赖；失败时已打开的资源会被释放
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	a := &App{Cfg: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.DB, err = database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThreshold:      time.Duration(cfg.DB.SlowThresholdMs) * time.Millisecond,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.onClose(func() {
		if sqlDB, e := a.DB.DB(); e == nil {
			_ = sqlDB.Close()
		}
	})
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err = repo.Migrate(a.DB); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}
	a.Store = repo.NewStore(a.DB)

	a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if a.Cache != nil {
		a.onClose(func() { _ = a.Cache.Close() })
	}

	a.Events, err = events.New(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	a.onClose(func() { _ = a.Events.Close() })

	shutdown, err := obs.InitTracer(ctx, obs.Options{
		Endpoint:    cfg.Trace.Endpoint,
		ServiceName: cfg.Trace.ServiceName,
		Env:         cfg.App.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}
	a.onClose(func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	})

	a.JWT = auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)

	d := service.Deps{
		Store:       a.Store,
		Log:         log,
		Events:      a.Events,
		Cache:       a.Cache,
		EmployeeTTL: time.Duration(cfg.Cache.EmployeeTTLSec) * time.Second,
	}
	agg := service.NewRatingAggregator(log)
	a.Users = service.NewUserService(d, a.JWT)
	a.Employees = service.NewEmployeeService(d, agg)
	a.Hiring = service.NewHiringService(d)
	a.Reviews = service.NewReviewService(d, agg)
	a.Favorites = service.NewFavoriteService(d)
	return a, nil
}

func (a *App) onClose(f func()) { a.closers = append(a.closers, f) }

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Ready 健康检查：DB 必须可达，Redis 配置了才检查
func (a *App) Ready(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Cache != nil {
		if err := a.Cache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// RouterOptions 用户端与管理端共用同一份模块注册表
func (a *App) RouterOptions(name string) router.Options {
	return router.Options{
		Name:   name,
		Mode:   server.ModeFor(a.Cfg.App.Env),
		Logger: a.Log,
		JWT:    a.JWT,
		Users:  a.Users,
		Registry: router.NewRegistry(
			handler.NewAuth(a.Users),
			handler.NewUser(a.Users, a.Favorites),
			handler.NewEmployee(a.Employees),
			handler.NewHiring(a.Hiring),
			handler.NewReview(a.Reviews),
		),
		Limits: a.Cfg.Limits,
		Ready:  a.Ready,
	}
}

// Serve 启动 HTTP 服务并阻塞到 ctx 结束，随后优雅关闭
func (a *App) Serve(ctx context.Context, name, addr string, h http.Handler) error {
	hc := a.Cfg.App.HTTP
	errLog, _ := logger.ToStdLogger(a.Log, zapcore.ErrorLevel)
	srv := server.BuildServer(addr, h,
		time.Duration(hc.ReadTimeoutSec)*time.Second,
		time.Duration(hc.WriteTimeoutSec)*time.Second,
		time.Duration(hc.IdleTimeoutSec)*time.Second,
		errLog,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.StartHTTP(srv, a.Log.With(zap.String("server", name))) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s listen: %w", name, err)
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	a.Log.Info("server stopped gracefully", zap.String("server", name))
	return nil
}
