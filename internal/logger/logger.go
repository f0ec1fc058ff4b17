// Package logger provides leveled, structured logging for the PDF translation
// pipeline. Entries go to a size-rotated log file, an optional console writer,
// or both.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the string representation of the log level
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") into a Level.
// Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64 field
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Float64 creates a float64 field
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration creates a duration field
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	SetLevel(level Level)
	Close() error
}

// Config holds the configuration for the logger
type Config struct {
	// LogFilePath is the log file; empty disables file output.
	LogFilePath string
	// MaxFileSize is the size in bytes that triggers rotation.
	MaxFileSize int64
	// MaxBackups is the number of rotated files kept next to the log file.
	MaxBackups int
	Level      Level
	// Console receives a copy of every entry when non-nil.
	Console io.Writer
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		LogFilePath: "pdftrans.log",
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
		Level:       LevelInfo,
	}
}

// DefaultLogger is the default implementation of the Logger interface
type DefaultLogger struct {
	config   Config
	mu       sync.Mutex
	level    Level
	file     *os.File
	fileSize int64
}

// NewDefaultLogger creates a new DefaultLogger with the given configuration
func NewDefaultLogger(config *Config) (*DefaultLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	l := &DefaultLogger{config: *config, level: config.Level}
	if l.config.LogFilePath == "" {
		return l, nil
	}

	if dir := filepath.Dir(l.config.LogFilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewConsoleLogger creates a logger that only writes to w.
func NewConsoleLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{config: Config{Console: w, Level: level}, level: level}
}

func (l *DefaultLogger) openFile() error {
	file, err := os.OpenFile(l.config.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.file = file
	l.fileSize = info.Size()
	return nil
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, nil, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, nil, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, nil, fields) }

// Error logs msg with err and the caller location.
func (l *DefaultLogger) Error(msg string, err error, fields ...Field) {
	if caller := callerLocation(); caller != "" {
		fields = append(fields, String("caller", caller))
	}
	l.write(LevelError, msg, err, fields)
}

// callerLocation returns file:line of the first frame outside this file.
func callerLocation() string {
	for skip := 2; skip < 8; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if filepath.Base(file) != "logger.go" {
			return filepath.Base(file) + ":" + strconv.Itoa(line)
		}
	}
	return ""
}

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Close closes the log file, if any.
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *DefaultLogger) write(level Level, msg string, err error, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := []byte(formatEntry(time.Now(), level, msg, err, fields))

	if l.file != nil {
		if l.config.MaxFileSize > 0 && l.fileSize+int64(len(entry)) > l.config.MaxFileSize {
			if rerr := l.rotate(); rerr != nil && l.config.Console != nil {
				fmt.Fprintf(l.config.Console, "log rotation failed: %v\n", rerr)
			}
		}
		if l.file != nil {
			n, _ := l.file.Write(entry)
			l.fileSize += int64(n)
		}
	}
	if l.config.Console != nil {
		l.config.Console.Write(entry)
	}
}

// formatEntry renders "2006-01-02 15:04:05.000 [LEVEL] msg key=value ...".
func formatEntry(ts time.Time, level Level, msg string, err error, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(ts.Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	if err != nil {
		sb.WriteString(" error=")
		sb.WriteString(strconv.Quote(err.Error()))
	}
	for _, f := range fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(formatValue(f.Value))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatValue(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// rotate shifts pdftrans.log -> .1 -> .2 ... dropping the oldest backup.
func (l *DefaultLogger) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	path := l.config.LogFilePath
	os.Remove(fmt.Sprintf("%s.%d", path, l.config.MaxBackups))
	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	if l.config.MaxBackups > 0 {
		os.Rename(path, path+".1")
	} else {
		os.Remove(path)
	}
	return l.openFile()
}

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Init replaces the global logger with a new DefaultLogger.
func Init(config *Config) error {
	l, err := NewDefaultLogger(config)
	if err != nil {
		return err
	}
	SetGlobalLogger(l)
	return nil
}

// GetLogger returns the global logger, or a no-op logger before Init.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return noopLogger{}
	}
	return globalLogger
}

// SetGlobalLogger sets the global logger instance, closing the previous one.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	prev := globalLogger
	globalLogger = l
	globalMu.Unlock()
	if prev != nil && prev != l {
		prev.Close()
	}
}

// Close closes the global logger
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		return nil
	}
	err := globalLogger.Close()
	globalLogger = nil
	return err
}

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...Field) { GetLogger().Debug(msg, fields...) }

// Info logs an informational message using the global logger
func Info(msg string, fields ...Field) { GetLogger().Info(msg, fields...) }

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...Field) { GetLogger().Warn(msg, fields...) }

// Error logs an error message using the global logger
func Error(msg string, err error, fields ...Field) { GetLogger().Error(msg, err, fields...) }

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field)        {}
func (noopLogger) Info(string, ...Field)         {}
func (noopLogger) Warn(string, ...Field)         {}
func (noopLogger) Error(string, error, ...Field) {}
func (noopLogger) SetLevel(Level)                {}
func (noopLogger) Close() error                  { return nil }
