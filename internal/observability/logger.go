// Package observability provides structured logging, metrics, and health checks
package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogConfig selects the level and encoding of the process-wide zap logger.
type LogConfig struct {
	Level  string
	Format string // json or console
}

var (
	baseMu sync.RWMutex
	base   = zap.NewNop()
)

// ConfigureLogging builds the process-wide zap logger. Loggers created
// afterwards with NewLogger write through it.
func ConfigureLogging(cfg LogConfig) error {
	encCfg := zap.NewProductionEncoderConfig()
	encoding := "json"
	if cfg.Format == "console" {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return fmt.Errorf("observability: build zap logger: %w", err)
	}

	baseMu.Lock()
	base = z
	baseMu.Unlock()
	return nil
}

// SyncLogging flushes buffered log entries.
func SyncLogging() {
	baseMu.RLock()
	defer baseMu.RUnlock()
	_ = base.Sync()
}

func parseLevel(s string) zapcore.Level {
	switch LogLevel(s) {
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

// Logger provides structured logging with correlation IDs
type Logger struct {
	z         *zap.Logger // nil writes through the process-wide logger
	component string
}

// NewLogger creates a component logger on the process-wide zap logger
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// NewLoggerFromCore is used by tests to observe log output.
func NewLoggerFromCore(core zapcore.Core, component string) *Logger {
	return &Logger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)), component: component}
}

func toZapLevel(level LogLevel) zapcore.Level {
	return parseLevel(string(level))
}

// log writes a structured log entry
func (l *Logger) log(ctx context.Context, level LogLevel, message string, fields map[string]interface{}) {
	z := l.z
	if z == nil {
		baseMu.RLock()
		z = base
		baseMu.RUnlock()
	}
	ce := z.Check(toZapLevel(level), message)
	if ce == nil {
		return
	}

	zfields := make([]zap.Field, 0, len(fields)+3)
	if l.component != "" {
		zfields = append(zfields, zap.String("component", l.component))
	}
	if ctx != nil {
		if correlationID := GetCorrelationID(ctx); correlationID != "" {
			zfields = append(zfields, zap.String("correlation_id", correlationID))
		}
		if userID := GetUserID(ctx); userID != "" {
			zfields = append(zfields, zap.String("user_id", userID))
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zfields = append(zfields, toZapField(k, fields[k]))
	}

	ce.Write(zfields...)
}

func toZapField(key string, value interface{}) zap.Field {
	switch v := value.(type) {
	case string:
		return zap.String(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case float64:
		return zap.Float64(key, v)
	case bool:
		return zap.Bool(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case error:
		return zap.NamedError(key, v)
	default:
		return zap.Any(key, v)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, LevelDebug, message, fields)
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, LevelInfo, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.log(ctx, LevelWarn, message, fields)
}

// Error logs an error message
func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.log(ctx, LevelError, message, fields)
}

// WithOperation logs the start and end of an operation
func (l *Logger) WithOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	if GetCorrelationID(ctx) == "" {
		ctx = WithCorrelationID(ctx, uuid.New().String())
	}

	l.Debug(ctx, "Starting operation: "+operation, map[string]interface{}{
		"operation": operation,
	})

	err := fn(ctx)
	fields := map[string]interface{}{
		"operation":   operation,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if err != nil {
		l.Error(ctx, "Operation failed: "+operation, err, fields)
		return err
	}

	l.Info(ctx, "Operation completed: "+operation, fields)
	return nil
}

// Context keys for storing values in context
type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	userIDKey        contextKey = "user_id"
)

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from the context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
