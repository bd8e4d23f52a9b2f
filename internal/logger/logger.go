// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides structured, level-based, optionally
// file-rotated logging for the filesystem and its FUSE transport.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity names accepted by setLoggingLevel/InitLogFile.
const (
	TRACE   = "TRACE"
	DEBUG   = "DEBUG"
	INFO    = "INFO"
	WARNING = "WARNING"
	ERROR   = "ERROR"
	OFF     = "OFF"
)

// slog has no native TRACE/WARNING/OFF levels; define our own scale,
// spaced the way slog spaces DEBUG/INFO/WARN/ERROR.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

// LogRotateConfig controls lumberjack's rotation behavior.
type LogRotateConfig struct {
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

func DefaultLogRotateConfig() LogRotateConfig {
	return LogRotateConfig{MaxFileSizeMB: 512, BackupFileCount: 10, Compress: true}
}

type loggerFactory struct {
	file            *os.File
	sysWriter       io.Writer
	level           string
	format          string
	logRotateConfig LogRotateConfig
}

var defaultLoggerFactory = &loggerFactory{
	sysWriter:       os.Stderr,
	level:           INFO,
	format:          "text",
	logRotateConfig: DefaultLogRotateConfig(),
}

var defaultLogger *slog.Logger
var programLevel = new(slog.LevelVar)

func init() {
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevel, ""))
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
}

func levelFromString(level string) slog.Level {
	switch level {
	case TRACE:
		return LevelTrace
	case DEBUG:
		return LevelDebug
	case INFO:
		return LevelInfo
	case WARNING:
		return LevelWarn
	case ERROR:
		return LevelError
	default:
		return LevelOff
	}
}

func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func setLoggingLevel(level string, pl *slog.LevelVar) {
	pl.Set(levelFromString(level))
}

// createJsonOrTextHandler returns a handler writing either the text line
// format "time=\"...\" severity=LEVEL message=\"prefix: msg\"" or the
// equivalent JSON object, gated by f.format.
func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, pl *slog.LevelVar, prefix string) slog.Handler {
	return &severityHandler{w: w, level: pl, prefix: prefix, json: f.format == "json"}
}

// severityHandler implements slog.Handler directly rather than wrapping
// slog/TextHandler or JSONHandler, so the field layout stays exactly the
// "time=... severity=... message=..." / timestamp-seconds-nanos shape the
// rest of the stack was built against.
type severityHandler struct {
	w      io.Writer
	level  *slog.LevelVar
	prefix string
	json   bool
}

func (h *severityHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *severityHandler) Handle(_ context.Context, r slog.Record) error {
	full := h.prefix + r.Message
	if h.json {
		type ts struct {
			Seconds int64 `json:"seconds"`
			Nanos   int64 `json:"nanos"`
		}
		payload := struct {
			Timestamp ts     `json:"timestamp"`
			Severity  string `json:"severity"`
			Message   string `json:"message"`
		}{
			Timestamp: ts{Seconds: r.Time.Unix(), Nanos: int64(r.Time.Nanosecond())},
			Severity:  levelName(r.Level),
			Message:   full,
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(h.w, string(b))
		return err
	}
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format("2006/01/02 15:04:05.000000"), levelName(r.Level), full)
	return err
}

func (h *severityHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *severityHandler) WithGroup(_ string) slog.Handler      { return h }

// SetLogFormat switches the default logger between "text" and "json" (any
// other value, including "", behaves as "text").
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	w := io.Writer(os.Stderr)
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	} else if defaultLoggerFactory.sysWriter != nil {
		w = defaultLoggerFactory.sysWriter
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
}

// InitLogFile points the default logger at a rotating log file. An empty
// path keeps logging on stderr.
func InitLogFile(path string, severity string, format string, rotate LogRotateConfig) error {
	defaultLoggerFactory.level = severity
	defaultLoggerFactory.format = format
	defaultLoggerFactory.logRotateConfig = rotate

	var w io.Writer = os.Stderr
	if path != "" {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotate.MaxFileSizeMB,
			MaxBackups: rotate.BackupFileCount,
			Compress:   rotate.Compress,
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("logger: open log file: %w", err)
		}
		defaultLoggerFactory.file = f
		defaultLoggerFactory.sysWriter = nil
		w = lj
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
	setLoggingLevel(severity, programLevel)
	return nil
}

func Tracef(format string, v ...any) { defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, v...)) }
func Debugf(format string, v ...any) { defaultLogger.Log(context.Background(), LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { defaultLogger.Log(context.Background(), LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { defaultLogger.Log(context.Background(), LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { defaultLogger.Log(context.Background(), LevelError, fmt.Sprintf(format, v...)) }

func Trace(v ...any) { Tracef("%s", fmt.Sprint(v...)) }
func Debug(v ...any) { Debugf("%s", fmt.Sprint(v...)) }
func Info(v ...any)  { Infof("%s", fmt.Sprint(v...)) }
func Warn(v ...any)  { Warnf("%s", fmt.Sprint(v...)) }
func Error(v ...any) { Errorf("%s", fmt.Sprint(v...)) }

// legacyWriter adapts the default logger to io.Writer for *log.Logger.
type legacyWriter struct {
	level slog.Level
}

func (w legacyWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}
	defaultLogger.Log(context.Background(), w.level, msg)
	return len(p), nil
}

// NewLegacyLogger returns a standard-library *log.Logger that forwards
// through the structured logger at the given severity, for handing to
// fuse.MountConfig.{ErrorLogger,DebugLogger}.
func NewLegacyLogger(level slog.Level, prefix string) *log.Logger {
	return log.New(legacyWriter{level: level}, prefix, 0)
}
