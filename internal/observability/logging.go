// Package observability provides the structured logger and the gRPC health
// service.
package observability

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// NewLogger builds a logger writing to stderr. "json" output is sampled and
// stamps errors with stack traces; "console" output is colourised and
// stamps warnings and above. Every entry carries the server name when set.
//
// Precondition: cfg must have passed config validation.
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, serverName string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	core, stackLevel, err := newCore(cfg.Format, level)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(stackLevel)}
	if serverName != "" {
		opts = append(opts, zap.Fields(zap.String("server", serverName)))
	}
	return zap.New(core, opts...), nil
}

func newCore(format string, level zapcore.Level) (zapcore.Core, zapcore.Level, error) {
	sink := zapcore.Lock(os.Stderr)
	switch format {
	case "json":
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, level)
		return zapcore.NewSamplerWithOptions(core, time.Second, 100, 100), zapcore.ErrorLevel, nil
	case "console":
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, level), zapcore.WarnLevel, nil
	}
	return nil, 0, fmt.Errorf("unknown log format %q", format)
}
