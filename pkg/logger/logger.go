package logger

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log      *zap.Logger
	onceInit sync.Once
)

// Init builds the process-wide logger once. The terminal belongs to the UI,
// so output goes to outputPath (a file, or "stderr" for CLI commands).
func Init(level zapcore.Level, outputPath string, meta ...zap.Field) error {
	var buildErr error
	onceInit.Do(func() {
		instance, err := configure(level, outputPath).Build()
		if err != nil {
			buildErr = err
			return
		}
		Log = instance.With(meta...)
	})

	if buildErr != nil {
		return buildErr
	}
	if Log == nil {
		return errors.New("logger not initialized")
	}
	return nil
}

// ParseLevel maps a config string to a zap level, defaulting to info
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func configure(level zapcore.Level, outputPath string) zap.Config {
	if outputPath == "" {
		outputPath = "stderr"
	}
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder.EncodeCaller = zapcore.ShortCallerEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder
	encoder.EncodeName = zapcore.FullNameEncoder
	encoder.CallerKey = "caller"
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     encoder,
		OutputPaths:       []string{outputPath},
		ErrorOutputPaths:  []string{outputPath},
	}
}
