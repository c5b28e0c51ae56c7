// Package logging builds the zap logger sx runs with.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xuxxeth/sx/internal/config"
)

// New builds a logger from cfg. Logs go to stderr unless cfg.File is set, in
// which case they go to that file, rotated at cfg.MaxSizeMB.
func New(cfg config.LogConfig, opts ...zap.Option) (*zap.Logger, error) {
	var out zapcore.WriteSyncer
	if cfg.File != "" {
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		})
	} else {
		out = zapcore.Lock(os.Stderr)
	}
	return build(cfg, out, opts...)
}

// NewTo builds a logger from cfg that writes to w, ignoring cfg.File.
func NewTo(cfg config.LogConfig, w io.Writer, opts ...zap.Option) (*zap.Logger, error) {
	return build(cfg, zapcore.AddSync(w), opts...)
}

func build(cfg config.LogConfig, out zapcore.WriteSyncer, opts ...zap.Option) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console", "":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	opts = append([]zap.Option{zap.AddStacktrace(zapcore.FatalLevel)}, opts...)
	return zap.New(zapcore.NewCore(enc, out, level), opts...), nil
}
