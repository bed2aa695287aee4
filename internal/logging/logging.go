// Package logging provides structured logging setup for space-finder.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// Setup builds the process logger.
// Dev mode uses a human-readable console encoder at debug level; prod emits JSON.
// SF_LOG_LEVEL overrides the level in either mode.
func Setup(devMode bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	fallback := defaultLevel
	if devMode {
		fallback = "debug"
	}
	text := strings.ToLower(strings.TrimSpace(os.Getenv("SF_LOG_LEVEL")))
	if text == "" || level.UnmarshalText([]byte(text)) != nil {
		_ = level.UnmarshalText([]byte(fallback))
	}

	var cfg zap.Config
	if devMode {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.Config{
			Encoding: "json",
			EncoderConfig: zapcore.EncoderConfig{
				MessageKey:    "message",
				TimeKey:       "timestamp",
				LevelKey:      "severity",
				CallerKey:     "caller",
				StacktraceKey: "stacktrace",
				EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
				EncodeCaller:  zapcore.ShortCallerEncoder,
				EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
					enc.AppendString(strings.ToUpper(l.String()))
				},
			},
			OutputPaths:       []string{"stdout"},
			ErrorOutputPaths:  []string{"stderr"},
			DisableStacktrace: true,
		}
	}
	cfg.Level = level

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
