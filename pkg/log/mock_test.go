package log_test

import "github.com/kanboard/kanboard-go/pkg/log"

var _ log.Logger = &recordingLogger{}

type entry struct {
	Level         log.Level
	Message       string
	KeysAndValues []any
}

// recordingLogger keeps the last entry and the state set through the builder
// methods.
type recordingLogger struct {
	last          entry
	name          string
	keysAndValues []any
	callerSkip    int
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{name: "recorder", keysAndValues: []any{}}
}

func (rl *recordingLogger) Debug(msg string, kv ...any) { rl.record(log.LevelDebug, msg, kv) }
func (rl *recordingLogger) Info(msg string, kv ...any)  { rl.record(log.LevelInfo, msg, kv) }
func (rl *recordingLogger) Warn(msg string, kv ...any)  { rl.record(log.LevelWarn, msg, kv) }
func (rl *recordingLogger) Error(msg string, kv ...any) { rl.record(log.LevelError, msg, kv) }
func (rl *recordingLogger) Fatal(msg string, kv ...any) { rl.record(log.LevelFatal, msg, kv) }

func (rl *recordingLogger) record(level log.Level, msg string, kv []any) {
	rl.last = entry{Level: level, Message: msg, KeysAndValues: kv}
}

func (rl *recordingLogger) WithKV(key string, value any) log.Logger {
	rl.keysAndValues = append(rl.keysAndValues, key, value)
	return rl
}

func (rl *recordingLogger) GetAllKV() []any { return rl.keysAndValues }

func (rl *recordingLogger) WithName(name string) log.Logger {
	rl.name = name
	return rl
}

func (rl *recordingLogger) Name() string { return rl.name }

func (rl *recordingLogger) AddCallerSkip(skip int) log.Logger {
	rl.callerSkip += skip
	return rl
}

type recordingSER struct {
	traceID string
	spanID  string
	failed  bool
	last    []any
}

func (r *recordingSER) TraceID() string { return r.traceID }
func (r *recordingSER) SpanID() string  { return r.spanID }

func (r *recordingSER) RecordEvent(name string, kv ...any) {
	r.last = append([]any{"msg", name}, kv...)
}

func (r *recordingSER) RecordError(name string, kv ...any) {
	r.failed = true
	r.last = append([]any{"msg", name}, kv...)
}
