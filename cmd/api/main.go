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
	log, cleanup := app.NewLogger(cfg.Log, cfg.App.Name+"-api")
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	r := router.NewAPIEngine(a.RouterOptions(cfg.App.Name + "-api"))
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)

	host := cfg.App.HTTP.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	baseURL := "http://" + host + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)
	if err := a.Serve(ctx, "api", addr, r); err != nil {
		log.Error("user api stopped", zap.Error(err))
	}
}
