package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string
	Environment string
	ServiceName string
}

var (
	mu  sync.RWMutex
	log *zap.Logger
)

// Init builds the process logger and replaces zap's globals with it.
func Init(cfg Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level.SetLevel(level)

	built, err := zcfg.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	built = built.With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	mu.Lock()
	log = built
	mu.Unlock()
	zap.ReplaceGlobals(built)

	built.Info("logger initialized", zap.String("level", level.String()))
	return built
}

// Get returns the process logger. Before Init it is a no-op logger so
// packages stay quiet in tests.
func Get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Set replaces the process logger and returns the previous one. Passing nil
// restores the no-op logger.
func Set(l *zap.Logger) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	prev := log
	log = l
	return prev
}

func Sync() {
	_ = Get().Sync()
}
