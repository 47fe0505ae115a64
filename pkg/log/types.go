package log

// Logger is the structured logger used across the client and the CLI.
type Logger interface {
	// Debug logs low-level details such as request envelopes and timings.
	Debug(msg string, keysAndValues ...any)
	// Info logs routine progress.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected situations the caller can recover from.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures.
	Error(msg string, keysAndValues ...any)
	// Fatal logs an unrecoverable failure and may terminate the program.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a logger that adds the pair to every entry.
	WithKV(key string, value any) Logger
	// GetAllKV returns the persistent pairs added with WithKV.
	GetAllKV() []any
	// WithName returns a logger scoped to a named component.
	WithName(name string) Logger
	// Name returns the component name.
	Name() string
	// AddCallerSkip returns a logger that skips extra stack frames when
	// reporting the caller. Implementations without caller info return themselves.
	AddCallerSkip(skip int) Logger
}

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// SpanEventRecorder records log entries onto a trace span.
type SpanEventRecorder interface {
	TraceID() string
	SpanID() string

	// RecordEvent adds an event with keysAndValues as attributes.
	RecordEvent(name string, keysAndValues ...any)
	// RecordError adds an event and marks the span as failed.
	RecordError(name string, keysAndValues ...any)
}
