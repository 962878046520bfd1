// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 是全局日志实例，Init 之前为 info 级别的 JSON 输出
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 根据服务名与日志级别初始化全局日志。pretty 为 true 时使用控制台格式 (开发环境)
func Init(serviceName, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	Logger = zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger()
}

// Ctx 返回带有当前 span 的 trace_id / span_id 的 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if ctx == nil {
		return &l
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return &l
}
