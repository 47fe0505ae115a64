// Package log is the structured logging layer shared by the kanboard client
// and the kanboard CLI.
//
// Loggers are passed explicitly or through a context; nothing is global.
//
//	logger := log.NewZapLogger(log.Config{Format: "logfmt", Level: log.LevelDebug})
//	ctx = log.SetContextLogger(ctx, logger.WithName("kanboard"))
//	log.FromContext(ctx).Info("calling procedure", "method", "getAllProjects")
//
// Implementations:
//
//   - ZapLogger writes console, logfmt or json entries through zap.
//   - NoopLogger drops everything and is returned by FromContext when the
//     context holds no logger.
//   - SpanLogger decorates another logger and mirrors entries as events on an
//     OpenTelemetry span. SetContextLogger installs it automatically when the
//     context carries a valid span.
//
// All methods take alternating key/value pairs after the message.
package log
