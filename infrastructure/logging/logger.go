// Package logging provides structured logging with run/VU/scenario context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// RunIDKey is the context key for the run identifier.
	RunIDKey ContextKey = "run_id"
	// ScenarioKey is the context key for the active scenario name.
	ScenarioKey ContextKey = "scenario"
	// VUIDKey is the context key for the active VU id.
	VUIDKey ContextKey = "vu_id"
)

// Logger wraps logrus.Logger with run-scoped context propagation.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance.
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stderr)

	return &Logger{
		Logger:    logger,
		component: component,
	}
}

// NewFromEnv constructs a logger using WRKR_LOG_LEVEL and WRKR_LOG_FORMAT.
// Defaults to "info" and "text" when unset (NDJSON output on stdout must
// never be interleaved with log lines, so logs default to a human format on
// stderr).
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("WRKR_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("WRKR_LOG_FORMAT"))
	if format == "" {
		format = "text"
	}
	return New(component, level, format)
}

// WithContext creates a log entry carrying run/scenario/VU fields from ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if runID := ctx.Value(RunIDKey); runID != nil {
		entry = entry.WithField("run_id", runID)
	}
	if scenario := ctx.Value(ScenarioKey); scenario != nil {
		entry = entry.WithField("scenario", scenario)
	}
	if vuID := ctx.Value(VUIDKey); vuID != nil {
		entry = entry.WithField("vu_id", vuID)
	}

	return entry
}

// WithFields creates a log entry with custom fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError creates a log entry carrying an error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err.Error(),
	})
}

// SetOutput sets the logger output.
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// NewRunID generates a new run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID attaches a run id to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithScenario attaches the active scenario name to ctx.
func WithScenario(ctx context.Context, scenario string) context.Context {
	return context.WithValue(ctx, ScenarioKey, scenario)
}

// WithVUID attaches the active VU id to ctx.
func WithVUID(ctx context.Context, vuID uint64) context.Context {
	return context.WithValue(ctx, VUIDKey, vuID)
}

// LogIterationError logs a script-level iteration failure. The iteration
// continues to be counted (see internal/vu), only the individual attempt
// failed.
func (l *Logger) LogIterationError(ctx context.Context, execFn string, err error) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"exec": execFn,
	}).WithError(err).Warn("iteration aborted by script error")
}

// LogThresholdVerdict logs a single threshold's pass/fail verdict.
func (l *Logger) LogThresholdVerdict(ctx context.Context, expr string, pass bool, observed float64) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"threshold": expr,
		"observed":  observed,
		"pass":      pass,
	})
	if pass {
		entry.Debug("threshold evaluated")
	} else {
		entry.Warn("threshold violated")
	}
}

// LogDroppedIteration logs an iteration shed by an open-model executor.
func (l *Logger) LogDroppedIteration(ctx context.Context, scenario string, scheduledAt time.Time) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"scenario":     scenario,
		"scheduled_at": scheduledAt.Format(time.RFC3339Nano),
	}).Warn("iteration dropped: no VU available")
}

// Fatal logs a fatal error and exits. Reserved for the Fatal error kind
// (§7): internal invariant violations that abort the whole run.
func (l *Logger) Fatal(ctx context.Context, message string, err error) {
	l.WithContext(ctx).WithError(err).Fatal(message)
}

// Global default logger, usable before a run-scoped logger is constructed
// (e.g. CLI argument parsing errors).
var defaultLogger *Logger

// InitDefault initializes the default logger.
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the default logger, constructing a fallback if unset.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = NewFromEnv("wrkr")
	}
	return defaultLogger
}

// FormatDuration renders a duration in fractional milliseconds, used by log
// lines that report latency without pulling in the NDJSON float-seconds
// convention used by the output event bus.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
