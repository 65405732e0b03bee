// Package logging provides the structured logger used across every package
// in this module.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger is the structured logging contract every component depends on.
// Components never depend on a concrete implementation, only this interface,
// so tests can substitute a NoOpLogger or a recording fake.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})

	// WithComponent returns a logger that tags every entry with component.
	WithComponent(component string) Logger
}

// correlationIDKey is the context key the HTTP surface stores the per-request
// correlation id under; every *WithContext call folds it into the log line.
type correlationIDKey struct{}

// WithCorrelationID attaches a correlation id to ctx for later logging.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the correlation id stored by WithCorrelationID, if any.
func CorrelationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(correlationIDKey{}).(string)
	return v, ok
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func (l level) String() string {
	switch l {
	case levelDebug:
		return "debug"
	case levelInfo:
		return "info"
	case levelWarn:
		return "warn"
	case levelError:
		return "error"
	default:
		return "unknown"
	}
}

func parseLevel(s string) level {
	switch s {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// ProductionLogger is the default Logger implementation. It emits JSON in
// "json" format (the production default) and a compact text line in "text"
// format (the local-dev default), matching gomind's console-layer
// logging convention.
type ProductionLogger struct {
	mu        sync.Mutex
	out       io.Writer
	minLevel  level
	format    string // "json" | "text"
	component string
}

// NewProductionLogger builds a logger reading LOG_LEVEL/LOG_FORMAT-style
// values explicitly (no package-level env reads; config.Config owns env
// parsing and passes the resolved values in).
func NewProductionLogger(levelStr, format string) *ProductionLogger {
	return &ProductionLogger{
		out:      os.Stdout,
		minLevel: parseLevel(levelStr),
		format:   format,
	}
}

func (l *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		out:       l.out,
		minLevel:  l.minLevel,
		format:    l.format,
		component: component,
	}
}

func (l *ProductionLogger) log(lv level, ctx context.Context, msg string, fields map[string]interface{}) {
	if lv < l.minLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		entry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"level":     lv.String(),
			"message":   msg,
		}
		if l.component != "" {
			entry["component"] = l.component
		}
		if ctx != nil {
			if cid, ok := CorrelationID(ctx); ok {
				entry["request_id"] = cid
			}
		}
		for k, v := range fields {
			entry[k] = v
		}
		enc, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, `{"level":"error","message":"log encode failure: %v"}`+"\n", err)
			return
		}
		l.out.Write(append(enc, '\n'))
		return
	}

	line := fmt.Sprintf("%s [%s]", time.Now().UTC().Format(time.RFC3339), lv.String())
	if l.component != "" {
		line += fmt.Sprintf(" (%s)", l.component)
	}
	line += " " + msg
	if ctx != nil {
		if cid, ok := CorrelationID(ctx); ok {
			line += fmt.Sprintf(" request_id=%s", cid)
		}
	}
	for k, v := range fields {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	fmt.Fprintln(l.out, line)
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) { l.log(levelDebug, nil, msg, fields) }
func (l *ProductionLogger) Info(msg string, fields map[string]interface{})  { l.log(levelInfo, nil, msg, fields) }
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{})  { l.log(levelWarn, nil, msg, fields) }
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) { l.log(levelError, nil, msg, fields) }

func (l *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(levelDebug, ctx, msg, fields)
}
func (l *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(levelInfo, ctx, msg, fields)
}
func (l *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(levelWarn, ctx, msg, fields)
}
func (l *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.log(levelError, ctx, msg, fields)
}

// NoOpLogger discards everything. It is the zero-value-safe default so
// components never need to nil-check their logger dependency.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, map[string]interface{}) {}
func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (n NoOpLogger) WithComponent(string) Logger { return n }
