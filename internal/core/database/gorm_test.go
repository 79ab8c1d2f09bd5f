package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		user, pass string
		want       string
	}{
		{
			name: "native dsn untouched",
			in:   "root:pw@tcp(127.0.0.1:3306)/app?parseTime=true",
			want: "root:pw@tcp(127.0.0.1:3306)/app?parseTime=true",
		},
		{
			name: "url with overrides",
			in:   "mysql://db.local:3306/teammate",
			user: "svc", pass: "pw",
			want: "svc:pw@tcp(db.local:3306)/teammate?charset=utf8mb4&parseTime=true",
		},
		{
			name: "jdbc params mapped",
			in:   "jdbc:mysql://u:p@h:3306/d?useSSL=false&characterEncoding=utf8&useUnicode=true",
			want: "u:p@tcp(h:3306)/d?charset=utf8&parseTime=true&tls=false",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeMySQLDSN(tt.in, tt.user, tt.pass); got != tt.want {
				t.Fatalf("normalizeMySQLDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskDSN(t *testing.T) {
	if got := maskDSN("root:secret@tcp(h:1)/d"); got != "root:****@tcp(h:1)/d" {
		t.Fatalf("maskDSN = %q", got)
	}
	if got := maskDSN("tcp(h:1)/d"); got != "tcp(h:1)/d" {
		t.Fatalf("maskDSN without credentials = %q", got)
	}
}

func TestNewGorm_SQLite(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("NewGorm: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB(): %v", err)
	}
	defer sqlDB.Close()

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		t.Fatalf("SELECT 1 = %d, %v", one, err)
	}
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	if _, err := NewGorm(Opts{Driver: "oracle"}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestGormLoggerSlowAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := newGormLogger(zap.New(core), gormlogger.Warn, 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT * FROM ai_employees", 3 }

	gl.Trace(context.Background(), time.Now(), sql, nil)
	gl.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatalf("fast query and not-found should be quiet, got %d entries", logs.Len())
	}

	gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	gl.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	entries := logs.All()
	if len(entries) != 2 || entries[0].Message != "slow sql" || entries[1].Message != "sql failed" {
		t.Fatalf("entries = %+v", entries)
	}

	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	if logs.Len() != 2 {
		t.Fatal("silent mode must not log")
	}
}
