// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jeremyhahn/go-dkg/pkg/correlation"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// SlogAdapter wraps a slog.Logger to implement the Logger interface
type SlogAdapter struct {
	logger *slog.Logger
	fields []Field
}

// SlogConfig configures the slog adapter
type SlogConfig struct {
	// Logger is the underlying slog logger. If nil one is built from the
	// remaining options.
	Logger *slog.Logger

	// Level is the minimum log level to output
	Level Level

	// Format selects the handler: "text" (default) or "json"
	Format string

	// Output defaults to os.Stderr
	Output io.Writer

	// AddSource adds source code position to log records
	AddSource bool
}

// NewSlogAdapter creates a new slog adapter
func NewSlogAdapter(config *SlogConfig) *SlogAdapter {
	if config == nil {
		config = &SlogConfig{Level: LevelInfo}
	}

	l := config.Logger
	if l == nil {
		out := config.Output
		if out == nil {
			out = os.Stderr
		}
		opts := &slog.HandlerOptions{
			Level:     levelToSlogLevel(config.Level),
			AddSource: config.AddSource,
		}
		var handler slog.Handler
		if strings.EqualFold(config.Format, FormatJSON) {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
		l = slog.New(handler)
	}

	return &SlogAdapter{
		logger: l,
		fields: make([]Field, 0),
	}
}

// New builds a logger from configuration strings. An unknown level falls
// back to info.
func New(level, format string, out io.Writer) *SlogAdapter {
	lvl, _ := ParseLevel(level)
	return NewSlogAdapter(&SlogConfig{Level: lvl, Format: format, Output: out})
}

// Discard returns a logger that drops every record.
func Discard() *SlogAdapter {
	return NewSlogAdapter(&SlogConfig{Output: io.Discard, Level: LevelError})
}

func (l *SlogAdapter) Debug(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelDebug, msg, fields...)
}

func (l *SlogAdapter) Info(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelInfo, msg, fields...)
}

func (l *SlogAdapter) Warn(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelWarn, msg, fields...)
}

func (l *SlogAdapter) Error(msg string, fields ...Field) {
	l.log(context.Background(), slog.LevelError, msg, fields...)
}

// DebugContext logs a debug message with the IDs found in ctx
func (l *SlogAdapter) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, contextFields(ctx, fields)...)
}

// InfoContext logs an informational message with the IDs found in ctx
func (l *SlogAdapter) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, contextFields(ctx, fields)...)
}

// WarnContext logs a warning message with the IDs found in ctx
func (l *SlogAdapter) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, contextFields(ctx, fields)...)
}

// ErrorContext logs an error message with the IDs found in ctx
func (l *SlogAdapter) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, contextFields(ctx, fields)...)
}

// contextFields appends correlation and session IDs from ctx when present
func contextFields(ctx context.Context, fields []Field) []Field {
	if ctx == nil {
		return fields
	}
	if id := correlation.GetCorrelationID(ctx); id != "" {
		fields = append(fields, String("correlation_id", id))
	}
	if id := correlation.GetSessionID(ctx); id != "" {
		fields = append(fields, SessionID(id))
	}
	return fields
}

// With creates a child logger with the given fields
func (l *SlogAdapter) With(fields ...Field) Logger {
	return l.with(fields...)
}

func (l *SlogAdapter) with(fields ...Field) *SlogAdapter {
	allFields := make([]Field, 0, len(l.fields)+len(fields))
	allFields = append(allFields, l.fields...)
	allFields = append(allFields, fields...)
	return &SlogAdapter{logger: l.logger, fields: allFields}
}

// WithError creates a child logger with an error field
func (l *SlogAdapter) WithError(err error) Logger {
	return l.with(Error(err))
}

// Slog exposes the underlying slog.Logger, e.g. for http.Server.ErrorLog.
func (l *SlogAdapter) Slog() *slog.Logger {
	return l.logger
}

func (l *SlogAdapter) log(ctx context.Context, level slog.Level, msg string, fields ...Field) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	for _, f := range fields {
		attrs = append(attrs, fieldToAttr(f))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

func fieldToAttr(field Field) slog.Attr {
	switch v := field.Value.(type) {
	case string:
		return slog.String(field.Key, v)
	case int:
		return slog.Int(field.Key, v)
	case int64:
		return slog.Int64(field.Key, v)
	case float64:
		return slog.Float64(field.Key, v)
	case bool:
		return slog.Bool(field.Key, v)
	case error:
		return slog.String(field.Key, v.Error())
	default:
		return slog.Any(field.Key, v)
	}
}

func levelToSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
