// Package logger provides the process-wide structured logger built on zap.
//
// Call sites use the package-level functions (Info, Infof, Infow, ...) so that
// business code never carries a logger handle around. The global logger is
// replaced once at startup via Init or SetGlobal.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.SugaredLogger = zap.NewNop().Sugar()
)

// Config controls how the global logger is built.
type Config struct {
	Level             string   // DEBUG|INFO|WARN|ERROR|FATAL
	Format            string   // json|console
	OutputPaths       []string // stdout, stderr or file paths
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Level:       "INFO",
		Format:      "console",
		OutputPaths: []string{"stdout"},
	}
}

// Init builds a zap logger from cfg and installs it as the global logger.
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return err
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = cfg.Format
	if zc.Encoding == "" {
		zc.Encoding = "console"
	}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	SetGlobal(l)
	return nil
}

// SetGlobal replaces the global logger.
func SetGlobal(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l.Sugar()
}

// L returns the current global logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered log entries. Call it before process exit.
func Sync() error {
	return L().Sync()
}

func Debug(args ...interface{})                   { L().Debug(args...) }
func Debugf(template string, args ...interface{}) { L().Debugf(template, args...) }
func Debugw(msg string, kv ...interface{})        { L().Debugw(msg, kv...) }

func Info(args ...interface{})                   { L().Info(args...) }
func Infof(template string, args ...interface{}) { L().Infof(template, args...) }
func Infow(msg string, kv ...interface{})        { L().Infow(msg, kv...) }

func Warn(args ...interface{})                   { L().Warn(args...) }
func Warnf(template string, args ...interface{}) { L().Warnf(template, args...) }
func Warnw(msg string, kv ...interface{})        { L().Warnw(msg, kv...) }

func Error(args ...interface{})                   { L().Error(args...) }
func Errorf(template string, args ...interface{}) { L().Errorf(template, args...) }
func Errorw(msg string, kv ...interface{})        { L().Errorw(msg, kv...) }

func Fatal(args ...interface{})                   { L().Fatal(args...) }
func Fatalf(template string, args ...interface{}) { L().Fatalf(template, args...) }
func Fatalw(msg string, kv ...interface{})        { L().Fatalw(msg, kv...) }
