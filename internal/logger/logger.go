package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps LOG_LEVEL values to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes category-tagged, colored lines to the console.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level

	debug   *color.Color
	info    *color.Color
	warn    *color.Color
	err     *color.Color
	process *color.Color
	payment *color.Color
	api     *color.Color
	db      *color.Color
	kafka   *color.Color
	sec     *color.Color
}

func NewLogger() *Logger {
	return New(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")))
}

func New(out io.Writer, level Level) *Logger {
	return &Logger{
		out:     out,
		level:   level,
		debug:   color.New(color.FgHiBlack),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		process: color.New(color.FgBlue),
		payment: color.New(color.FgGreen),
		api:     color.New(color.FgMagenta),
		db:      color.New(color.FgHiBlue),
		kafka:   color.New(color.FgHiMagenta),
		sec:     color.New(color.FgHiRed),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

func (l *Logger) write(level Level, c *color.Color, tag, category, msg string) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	c.Fprintf(l.out, "%s [%-7s] [%s] %s\n", ts, tag, category, msg)
}

func (l *Logger) Debug(category, msg string) { l.write(LevelDebug, l.debug, "DEBUG", category, msg) }
func (l *Logger) Info(category, msg string)  { l.write(LevelInfo, l.info, "INFO", category, msg) }
func (l *Logger) Warn(category, msg string)  { l.write(LevelWarn, l.warn, "WARN", category, msg) }
func (l *Logger) Error(category, msg string) { l.write(LevelError, l.err, "ERROR", category, msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(category, msg string) {
	l.write(LevelError, l.err, "FATAL", category, msg)
	os.Exit(1)
}

func (l *Logger) LogProcess(stage, msg string) {
	l.write(LevelInfo, l.process, "PROCESS", stage, msg)
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(LevelInfo, l.api, "API", method, fmt.Sprintf("%s -> %s (%s)", path, status, duration))
}

func (l *Logger) LogPayment(stage, ref, msg string) {
	l.write(LevelInfo, l.payment, "PAYMENT", stage, fmt.Sprintf("[%s] %s", ref, msg))
}

func (l *Logger) LogDatabase(op, store, msg string) {
	l.write(LevelInfo, l.db, "STORE", op, fmt.Sprintf("(%s) %s", store, msg))
}

func (l *Logger) LogKafka(op, topic, msg string) {
	l.write(LevelInfo, l.kafka, "KAFKA", op, fmt.Sprintf("(%s) %s", topic, msg))
}

func (l *Logger) LogSecurity(event, msg string) {
	l.write(LevelWarn, l.sec, "SECURE", event, msg)
}

// Close is kept for symmetry with deferred shutdown in main.
func (l *Logger) Close() {}
