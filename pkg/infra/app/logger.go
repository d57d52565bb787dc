package app

import (
	"go.uber.org/zap"

	"github.com/coursechat-io/coursechat/pkg/logger"
)

// Logger returns the global logger instance.
func Logger() *zap.SugaredLogger {
	return logger.L()
}

// Info logs an info message using the global logger.
func Info(args ...interface{}) {
	logger.Info(args...)
}

// Warn logs a warning message using the global logger.
func Warn(args ...interface{}) {
	logger.Warn(args...)
}

// Error logs an error message using the global logger.
func Error(args ...interface{}) {
	logger.Error(args...)
}

// Infof logs an info message with formatting using the global logger.
func Infof(template string, args ...interface{}) {
	logger.Infof(template, args...)
}

// Errorf logs an error message with formatting using the global logger.
func Errorf(template string, args ...interface{}) {
	logger.Errorf(template, args...)
}

// Infow logs an info message with structured fields using the global logger.
func Infow(msg string, keysAndValues ...interface{}) {
	logger.Infow(msg, keysAndValues...)
}

// Warnw logs a warning message with structured fields using the global logger.
func Warnw(msg string, keysAndValues ...interface{}) {
	logger.Warnw(msg, keysAndValues...)
}

// Errorw logs an error message with structured fields using the global logger.
func Errorw(msg string, keysAndValues ...interface{}) {
	logger.Errorw(msg, keysAndValues...)
}

// Flush flushes any buffered log entries using the global logger.
func Flush() error {
	return logger.Sync()
}
