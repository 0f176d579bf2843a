package batch

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed information, typically of interest only when diagnosing problems.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for informational messages that highlight the progress of a run.
	LogLevelInfo
	// LogLevelWarn is for potentially harmful situations, such as failed accessors.
	LogLevelWarn
	// LogLevelError is for failed items.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel reads a level name such as "debug" or "WARN".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	}
	return LogLevelInfo, errors.Newf("unknown log level %q", s)
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the structured logging interface used by Batch. Messages are
// constant strings; context goes into alternating key/value pairs.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// NoOpLogger discards all log messages. It is the default logger.
type NoOpLogger struct{}

// Debugw implements the Logger interface.
func (n *NoOpLogger) Debugw(msg string, keysAndValues ...interface{}) {}

// Infow implements the Logger interface.
func (n *NoOpLogger) Infow(msg string, keysAndValues ...interface{}) {}

// Warnw implements the Logger interface.
func (n *NoOpLogger) Warnw(msg string, keysAndValues ...interface{}) {}

// Errorw implements the Logger interface.
func (n *NoOpLogger) Errorw(msg string, keysAndValues ...interface{}) {}

// NewConsoleLogger returns a human-readable zap logger writing to stderr at
// the given minimum level.
func NewConsoleLogger(minLevel LogLevel) *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), minLevel.zapLevel())
	return zap.New(core).Sugar()
}

// NewJSONLogger returns a zap production logger emitting JSON lines to
// stderr at the given minimum level.
func NewJSONLogger(minLevel LogLevel) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(minLevel.zapLevel())
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	l, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build JSON logger")
	}
	return l.Sugar(), nil
}
