package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Additional-Code/orderdesk/internal/config"
)

// Module exposes a configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the process logger; callers own the cleanup via Fx lifecycle.
// When an audit log path is configured every record is also written, as JSON,
// to a size-rotated file.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, closer, err := Build(cfg.Observability)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			return closer()
		},
	})

	return logger, nil
}

// Build constructs the logger without Fx; the returned func releases the audit file.
func Build(observability config.Observability) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(observability.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = observability.LogEncoding
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	zapCfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	if observability.LogEncoding == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	closer := func() error { return nil }
	var opts []zap.Option
	if observability.AuditLogPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   observability.AuditLogPath,
			MaxSize:    observability.AuditLogMaxSizeMB,
			MaxBackups: observability.AuditLogMaxBackups,
		}
		fileEncoder := zap.NewProductionEncoderConfig()
		fileEncoder.TimeKey = "ts"
		fileEncoder.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
		fileEncoder.EncodeLevel = zapcore.LowercaseLevelEncoder
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(rotator), zapCfg.Level)

		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
		closer = rotator.Close
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}

	host, _ := os.Hostname()
	logger = logger.With(
		zap.String("service", observability.ServiceName),
		zap.String("environment", observability.Environment),
		zap.String("host", host),
	)

	return logger, closer, nil
}
