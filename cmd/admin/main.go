package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Anlan01819/AIteammate/internal/app"
	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/core/logger"
	"github.com/Anlan01819/AIteammate/internal/core/server"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg.Log, cfg.App.Name+"-admin")
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	r := router.NewAdminEngine(a.RouterOptions(cfg.App.Name + "-admin"))
	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("admin_v1", fmt.Sprintf("http://%s/admin/v1", addr)),
	)
	if err := a.Serve(ctx, "admin", addr, r); err != nil {
		log.Error("admin api stopped", zap.Error(err))
	}
}
