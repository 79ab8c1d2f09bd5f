package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/Anlan01819/AIteammate/internal/core/config"
	"github.com/Anlan01819/AIteammate/internal/transport/http/router"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.App{Name: "aiteammate", Env: "test"},
		JWT: config.JWT{Secret: "s", Issuer: "aiteammate", AccessTokenTTLMin: 60},
		DB: config.DB{
			Driver: "sqlite", DSN: ":memory:",
			MaxOpenConns: 1, MaxIdleConns: 1,
			AutoMigrate: true, LogLevel: "silent",
		},
	}
}

func TestBootstrapServesBothEngines(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Cache != nil {
		t.Fatal("cache should be disabled without redis addr")
	}
	if err := a.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	for name, h := range map[string]http.Handler{
		"api":   router.NewAPIEngine(a.RouterOptions("api")),
		"admin": router.NewAdminEngine(a.RouterOptions("admin")),
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s /health = %d", name, w.Code)
		}
	}

	w := httptest.NewRecorder()
	router.NewAPIEngine(a.RouterOptions("api")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("catalog = %d %s", w.Code, w.Body.String())
	}
}

func TestBootstrapBadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DB.Driver = "oracle"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
