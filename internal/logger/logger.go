// Package logger provides the leveled logging used across the signal
// pipeline. Output goes to stderr either as bracketed text lines or as JSON
// objects, selected by the logging.format config key.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger writes leveled log lines in a fixed format.
type Logger struct {
	level  Level
	format string
	logger *log.Logger
}

var defaultLogger *Logger

// Init initializes the default logger writing to stderr with the given
// level ("debug", "info", "warn", "error") and format ("text" or "json").
// Unrecognized values fall back to info and text.
func Init(level, format string) {
	defaultLogger = newLogger(level, format, os.Stderr)
}

func newLogger(level, format string, w io.Writer) *Logger {
	var l Level
	switch strings.ToLower(level) {
	case "debug":
		l = DebugLevel
	case "info":
		l = InfoLevel
	case "warn":
		l = WarnLevel
	case "error":
		l = ErrorLevel
	default:
		l = InfoLevel
	}

	f := strings.ToLower(format)
	flags := log.LstdFlags | log.Lmicroseconds
	if f == "json" {
		// JSON lines carry their own timestamp field.
		flags = 0
	} else {
		f = "text"
	}
	return &Logger{level: l, format: f, logger: log.New(w, "", flags)}
}

type jsonLine struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func (l *Logger) log(level Level, tag, format string, args ...interface{}) {
	if l == nil || l.level > level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.format == "json" {
		line, err := json.Marshal(jsonLine{
			Time:  time.Now().Format(time.RFC3339Nano),
			Level: tag,
			Msg:   msg,
		})
		if err != nil {
			// Fall back to plain text rather than dropping the record.
			_ = l.logger.Output(3, "["+tag+"] "+msg)
			return
		}
		_ = l.logger.Output(3, string(line))
		return
	}
	_ = l.logger.Output(3, "["+tag+"] "+msg)
}

func Debug(format string, args ...interface{}) {
	defaultLogger.log(DebugLevel, "DEBUG", format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.log(InfoLevel, "INFO", format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.log(WarnLevel, "WARN", format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.log(ErrorLevel, "ERROR", format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.log(ErrorLevel, "FATAL", format, args...)
	os.Exit(1)
}
