// Package logger 构建 zap 日志：控制台输出，可选 lumberjack 切割文件。
package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level   string // debug / info / warn / error，非法值按 info
	JSON    bool
	Service string // 非空时作为固定字段 service 输出

	// File 非空时同时写文件；文件一律 JSON 编码
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// 每秒同一条消息前 SampleFirst 条全记，之后每 SampleThereafter 条记一条；0 表示不采样
	SampleFirst      int
	SampleThereafter int
}

// New 返回 logger 与收尾函数（flush 并关闭文件）
func New(o Options) (*zap.Logger, func()) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lvl.UnmarshalText([]byte(o.Level)); err != nil {
		lvl.SetLevel(zapcore.InfoLevel)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(o.JSON), zapcore.Lock(os.Stdout), lvl),
	}
	var rotator *lumberjack.Logger
	if o.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    max(1, o.MaxSizeMB),
			MaxBackups: max(0, o.MaxBackups),
			MaxAge:     max(0, o.MaxAgeDays),
			Compress:   o.Compress,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), lvl))
	}

	core := zapcore.NewTee(cores...)
	if o.SampleFirst > 0 {
		core = zapcore.NewSamplerWithOptions(core, time.Second, o.SampleFirst, o.SampleThereafter)
	}
	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if o.Service != "" {
		l = l.With(zap.String("service", o.Service))
	}
	return l, func() {
		_ = l.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func consoleEncoder(json bool) zapcore.Encoder {
	if json {
		return jsonEncoder()
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

type zapIOWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w *zapIOWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if ce := w.l.Check(w.level, msg); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 把按行写入的第三方输出（如 gin debug）转成日志
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return &zapIOWriter{l: l, level: level}
}

// ToStdLogger 供 http.Server.ErrorLog 使用
func ToStdLogger(l *zap.Logger, level zapcore.Level) (*log.Logger, error) {
	return zap.NewStdLogAt(l, level)
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
