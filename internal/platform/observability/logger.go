package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fetchkids/api/internal/platform/requestctx"
)

// NewLogger builds the process-wide zap logger. Output is JSON on stdout
// with Cloud Logging field names (severity, timestamp, message). The level
// comes from LOG_LEVEL and defaults to info.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = parseLevel(os.Getenv("LOG_LEVEL"))
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true

	enc := &cfg.EncoderConfig
	enc.MessageKey = "message"
	enc.TimeKey = "timestamp"
	enc.LevelKey = "severity"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = func(level zapcore.Level, out zapcore.PrimitiveArrayEncoder) {
		out.AppendString(strings.ToUpper(level.String()))
	}

	return cfg.Build()
}

func parseLevel(raw string) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return level
	}
	if parsed, err := zapcore.ParseLevel(raw); err == nil {
		level.SetLevel(parsed)
	}
	return level
}

// WithLogger stores the logger on the context for downstream handlers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// PrintfAdapter exposes a zap logger through a Printf-shaped interface for
// collaborators that only accept printf-style loggers.
type PrintfAdapter struct {
	sugar *zap.SugaredLogger
}

// NewPrintfAdapter wraps logger; a nil logger produces a silent adapter.
func NewPrintfAdapter(logger *zap.Logger) PrintfAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return PrintfAdapter{sugar: logger.Sugar()}
}

// Printf logs at info level.
func (a PrintfAdapter) Printf(format string, args ...any) {
	a.sugar.Infof(format, args...)
}
