package logger

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	internaltrace "econ-calendar-bot/internal/trace"
)

var (
	// base is the configured zap logger; callers go through the skip-adjusted sugars below.
	base = zap.NewNop()
	// sugars[n] reports the caller n frames above the logging helper.
	sugars = buildSugars(base)
	// Whether detailed (debug) logging is enabled
	detailedLogging bool
)

const maxSkip = 3

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or console
	File            string // optional path, rotated with lumberjack
	MaxAgeDays      int    // retention for rotated files
	DetailedLogging bool   // enable debug output and caller info
}

// Init initializes the global logger based on environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	maxAge, _ := strconv.Atoi(getEnvOrDefault("LOG_MAX_AGE_DAYS", "14"))
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		File:            os.Getenv("LOG_FILE"),
		MaxAgeDays:      maxAge,
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	}
}

// InitWithConfig initializes the logger with specific configuration
func InitWithConfig(config LogConfig) error {
	level := parseLogLevel(config.Level)
	detailedLogging = config.DetailedLogging || level == zapcore.DebugLevel
	if detailedLogging && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(config.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if config.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename: config.File,
			MaxAge:   config.MaxAgeDays,
			MaxSize:  100,
			Compress: true,
		})
	}

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if detailedLogging {
		opts = append(opts, zap.AddCaller())
	}

	SetLogger(zap.New(zapcore.NewCore(encoder, sink, level), opts...))
	return nil
}

// SetLogger replaces the global logger, e.g. with zaptest/observer loggers in tests.
func SetLogger(l *zap.Logger) {
	base = l
	sugars = buildSugars(l)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = base.Sync()
}

func buildSugars(l *zap.Logger) [maxSkip + 1]*zap.SugaredLogger {
	var out [maxSkip + 1]*zap.SugaredLogger
	for i := range out {
		// +2: zap.Sugar method -> logWithTrace -> helper
		out[i] = l.WithOptions(zap.AddCallerSkip(i + 2)).Sugar()
	}
	return out
}

// parseLogLevel converts string log level to a zap level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type cycleKey struct{}

// WithCycleID tags every record logged with ctx with a correlation id.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleID returns the correlation id set by WithCycleID.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// getTraceAttrs extracts the cycle id, trace ID and span ID from context for logging
func getTraceAttrs(ctx context.Context) []any {
	var attrs []any
	if id := CycleID(ctx); id != "" {
		attrs = append(attrs, "cycle_id", id)
	}
	if traceID, spanID, ok := internaltrace.GetTraceFields(ctx); ok {
		attrs = append(attrs, "trace_id", traceID, "span_id", spanID)
	}
	return attrs
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.DebugLevel, msg, 0, args...)
}

// DebugSkip logs a debug message attributed to a caller skip frames further up.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, zapcore.DebugLevel, msg, skip, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.InfoLevel, msg, 0, args...)
}

// InfoSkip logs an info message attributed to a caller skip frames further up.
func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, zapcore.InfoLevel, msg, skip, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.WarnLevel, msg, 0, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, zapcore.ErrorLevel, msg, 0, args...)
}

// ErrorWithErr logs an error message with an error object
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, zapcore.ErrorLevel, msg, 0, append([]any{"error", err}, args...)...)
}

// ErrorWithErrSkip is ErrorWithErr attributed to a caller skip frames further up.
func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	recordSpanError(ctx, err)
	logWithTrace(ctx, zapcore.ErrorLevel, msg, skip, append([]any{"error", err}, args...)...)
}

func recordSpanError(ctx context.Context, err error) {
	if err == nil || !internaltrace.Enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// logWithTrace logs a message with trace ID and span ID if available
func logWithTrace(ctx context.Context, level zapcore.Level, msg string, skip int, args ...any) {
	if skip < 0 {
		skip = 0
	}
	if skip > maxSkip {
		skip = maxSkip
	}
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}
	s := sugars[skip]
	switch level {
	case zapcore.DebugLevel:
		s.Debugw(msg, args...)
	case zapcore.InfoLevel:
		s.Infow(msg, args...)
	case zapcore.WarnLevel:
		s.Warnw(msg, args...)
	default:
		s.Errorw(msg, args...)
	}
}

// OperationTimer helps measure operation duration with OpenTelemetry spans
type OperationTimer struct {
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation with an OpenTelemetry span
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := internaltrace.StartSpan(ctx, operation)
	span.SetAttributes(toAttributes(fields)...)

	Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: append([]any{"operation", operation}, fields...),
	}
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) time.Duration {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(toAttributes(additionalFields)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	Debug(ot.ctx, "Operation completed", append(fields, additionalFields...)...)
	return duration
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) time.Duration {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds(), "error", err)
	Error(ot.ctx, "Operation failed", append(fields, additionalFields...)...)
	return duration
}

// GetContext returns the context with the span
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		}
	}
	return attrs
}

// Notification logs an emitted notification (always logged regardless of level)
func Notification(ctx context.Context, category, identity string, delivered bool, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("notification_emitted", trace.WithAttributes(
			attribute.String("category", category),
			attribute.String("identity", identity),
			attribute.Bool("delivered", delivered),
		))
	}

	allFields := append([]any{
		"type", "NOTIFICATION",
		"category", category,
		"identity", identity,
		"delivered", delivered,
	}, fields...)
	logWithTrace(ctx, zapcore.InfoLevel, "Notification emitted", 0, allFields...)
}

// IsDebugEnabled reports whether LOG_LEVEL=DEBUG or LOG_DETAILED is set.
func IsDebugEnabled() bool {
	return detailedLogging
}
