// Copyright (C) 2025 mxczfr
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package logger provides structured leveled logging for secret-store.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Format selects how a StructuredLogger renders each entry.
type Format int

const (
	// JSONFormat renders each entry as a single-line JSON object (default).
	JSONFormat Format = iota
	// TextFormat renders each entry as "time level msg key=value ...".
	TextFormat
)

// ParseFormat maps the config/CLI string ("json", "text") to a Format,
// defaulting to JSONFormat for an empty or unrecognized value.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "text") {
		return TextFormat
	}
	return JSONFormat
}

// ParseLevel maps the config/CLI string to a Level, defaulting to InfoLevel
// for an empty or unrecognized value.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithFields(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// StructuredLogger implements Logger with JSON or plain-text output.
type StructuredLogger struct {
	mu         sync.RWMutex
	level      Level
	output     io.Writer
	format     Format
	baseFields []Field
	timeFormat string
}

// NewLogger creates a new structured logger writing JSON to output at the
// given level.
func NewLogger(output io.Writer, level Level) *StructuredLogger {
	return NewLoggerWithFormat(output, level, JSONFormat)
}

// NewLoggerWithFormat creates a new structured logger writing to output at
// the given level, rendering entries in format.
func NewLoggerWithFormat(output io.Writer, level Level, format Format) *StructuredLogger {
	return &StructuredLogger{
		level:      level,
		output:     output,
		format:     format,
		timeFormat: time.RFC3339,
	}
}

// NewDefaultLogger creates a logger reading its level from SECRET_STORE_LOG_LEVEL.
func NewDefaultLogger() *StructuredLogger {
	level := InfoLevel
	if envLevel := os.Getenv("SECRET_STORE_LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	return NewLogger(os.Stderr, level)
}

func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *StructuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *StructuredLogger) WithFields(fields ...Field) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	next := &StructuredLogger{
		level:      l.level,
		output:     l.output,
		format:     l.format,
		timeFormat: l.timeFormat,
		baseFields: append(append([]Field{}, l.baseFields...), fields...),
	}
	return next
}

func (l *StructuredLogger) log(level Level, msg string, fields ...Field) {
	l.mu.RLock()
	minLevel := l.level
	out := l.output
	format := l.format
	tf := l.timeFormat
	base := l.baseFields
	l.mu.RUnlock()

	if level < minLevel {
		return
	}

	all := make([]Field, 0, len(base)+len(fields))
	all = append(all, base...)
	all = append(all, fields...)

	if format == TextFormat {
		l.logText(out, tf, level, msg, all)
		return
	}
	l.logJSON(out, tf, level, msg, all)
}

func (l *StructuredLogger) logJSON(out io.Writer, tf string, level Level, msg string, fields []Field) {
	entry := map[string]interface{}{
		"time":  time.Now().Format(tf),
		"level": level.String(),
		"msg":   msg,
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(out, `{"level":"ERROR","msg":"log marshal failed: %v"}`+"\n", err)
		return
	}
	fmt.Fprintln(out, string(data))
}

func (l *StructuredLogger) logText(out io.Writer, tf string, level Level, msg string, fields []Field) {
	var b strings.Builder
	b.WriteString(time.Now().Format(tf))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(out, b.String())
}

func (l *StructuredLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *StructuredLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *StructuredLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *StructuredLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }
func (l *StructuredLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}
