package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	levelOnce sync.Once
	atomLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	mu      sync.RWMutex
	leveled *zap.SugaredLogger
	always  *zap.SugaredLogger
)

func init() {
	setOutput(os.Stderr)
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		atomLevel.SetLevel(levelFromEnv().zapLevel())
	})
}

func levelFromEnv() LogLevel {
	// Check DEBUG environment variable first
	if debug := os.Getenv("DEBUG"); debug != "" {
		switch strings.ToLower(debug) {
		case "1", "true", "yes", "on":
			return LevelDebug
		}
	}

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		// Default to Info level (no debug logs)
		return LevelInfo
	}
	return level
}

// ParseLevel parses a level name. The empty string parses as info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZap(l zapcore.Level) LogLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return LevelDebug
	case l == zapcore.InfoLevel:
		return LevelInfo
	case l == zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

func setOutput(w io.Writer) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	sink := zapcore.Lock(zapcore.AddSync(w))

	mu.Lock()
	defer mu.Unlock()
	leveled = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, atomLevel)).Sugar()
	always = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, zapcore.DebugLevel)).Sugar()
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	setOutput(w)
}

func logger() *zap.SugaredLogger {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return leveled
}

// SetLevel overrides the level taken from the environment
func SetLevel(l LogLevel) {
	initLevel()
	atomLevel.SetLevel(l.zapLevel())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return fromZap(atomLevel.Level())
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logger().Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logger().Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logger().Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logger().Errorf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger().Fatalf(format, args...)
}

// Printf logs a message regardless of the configured level
func Printf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	always.Infof(format, args...)
}

// Println logs its operands regardless of the configured level
func Println(args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	always.Infoln(args...)
}

// Sync flushes buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = leveled.Sync()
	_ = always.Sync()
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
