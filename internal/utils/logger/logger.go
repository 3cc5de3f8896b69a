package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// Level orders log output; messages below the process level are discarded.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	// INFO_EMOJI Emoji constants
	INFO_EMOJI    = "ℹ️ "
	SUCCESS_EMOJI = "✅ "
	WARN_EMOJI    = "⚠️ "
	ERROR_EMOJI   = "❌ "
	DEBUG_EMOJI   = "🔍 "
)

var (
	level  atomic.Int32
	output io.Writer = os.Stdout
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel sets the process-wide level from a name such as "debug" or "warn".
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Store(int32(LevelDebug))
	case "info":
		level.Store(int32(LevelInfo))
	case "warn", "warning":
		level.Store(int32(LevelWarn))
	case "error":
		level.Store(int32(LevelError))
	}
}

// SetOutput redirects every logger. Tests use it to silence output.
func SetOutput(w io.Writer) {
	output = w
}

type Logger struct {
	serviceName string
}

func New(serviceName string) *Logger {
	return &Logger{
		serviceName: serviceName,
	}
}

func (l *Logger) formatMessage(level, emoji, msg string) string {
	_, file, line, _ := runtime.Caller(2)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fileName := filepath.Base(file)

	return fmt.Sprintf("%s | %s | %s | %s:%d | %s | %s",
		emoji,
		timestamp,
		level,
		fileName,
		line,
		l.serviceName,
		msg,
	)
}

func enabled(l Level) bool {
	return Level(level.Load()) <= l
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	formatted := l.formatMessage("INFO", INFO_EMOJI, fmt.Sprintf(msg, args...))
	color.New(color.FgCyan).Fprintln(output, formatted)
}

func (l *Logger) Success(msg string, args ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	formatted := l.formatMessage("SUCCESS", SUCCESS_EMOJI, fmt.Sprintf(msg, args...))
	color.New(color.FgGreen).Fprintln(output, formatted)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	formatted := l.formatMessage("WARN", WARN_EMOJI, fmt.Sprintf(msg, args...))
	color.New(color.FgYellow).Fprintln(output, formatted)
}

// Error logs msg with err appended and returns err wrapped with msg, so call
// sites can log and return in one statement.
func (l *Logger) Error(msg string, err error, args ...interface{}) error {
	if enabled(LevelError) {
		formatted := l.formatMessage("ERROR", ERROR_EMOJI, fmt.Sprintf(msg, args...)+": "+errString(err))
		color.New(color.FgRed).Fprintln(output, formatted)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), err)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	formatted := l.formatMessage("DEBUG", DEBUG_EMOJI, fmt.Sprintf(msg, args...))
	color.New(color.FgMagenta).Fprintln(output, formatted)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
