package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// noopFunc is a reusable no-op function to avoid allocations
var noopFunc = func() {}

var (
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  *zap.SugaredLogger
	logger *zap.Logger
)

func init() {
	// Stderr fallback until Init is called with a real sink.
	build(zapcore.Lock(os.Stderr))
}

func build(sink zapcore.WriteSyncer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)
	logger = zap.New(core)
	sugar = logger.Sugar()
}

// Init directs all logging to the given file at the given level.
// Caller must defer Close().
func Init(file *os.File, lvl zapcore.Level) {
	level.SetLevel(lvl)
	build(zapcore.Lock(file))
}

// SetGlobalLevel changes the logging level at runtime.
func SetGlobalLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// ParseLogLevel parses a string into a zap level, defaulting to info.
func ParseLogLevel(s string) zapcore.Level {
	switch strings.ToUpper(s) {
	case "DEBUG", "TRACE":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Trace returns a function that logs operation duration when called.
// Returns a no-op function when debug logging is disabled to avoid overhead.
// Usage: defer logger.Trace("operation")()
func Trace(name string) func() {
	if !level.Enabled(zapcore.DebugLevel) {
		return noopFunc
	}
	start := time.Now()
	return func() {
		sugar.Debugf("%s: %v", name, time.Since(start))
	}
}

// Debug logs a debug message
func Debug(format string, v ...any) {
	sugar.Debugf(format, v...)
}

// Info logs an info message
func Info(format string, v ...any) {
	sugar.Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...any) {
	sugar.Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...any) {
	sugar.Errorf(format, v...)
}

// Fatal logs an error message and exits with code 1
func Fatal(format string, v ...any) {
	sugar.Errorf(format, v...)
	_ = logger.Sync()
	os.Exit(1)
}

// Close flushes any buffered log entries.
func Close() error {
	return logger.Sync()
}
