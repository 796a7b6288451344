// Package logging 构造命令行使用的 slog 日志
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Config 日志设置
type Config struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// New 创建写到 w 的日志；命令输出走 stdout，所以日志一般写 stderr
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

type contextKey struct{}

// NewContext 把日志挂到 ctx 上
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext 取出日志，没有时返回 slog.Default()
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// ParseLevel 未知级别按 warn 处理
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
