// Package-level configuration for structured logging.
//
// This design allows external integration with logging frameworks while
// providing a low-overhead built-in implementation for basic usage.
//
// Usage:
//
//	stackrt.SetLogger(stackrt.NewDefaultLogger(stackrt.LevelInfo))
package stackrt

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/stackrt/internal/ratelog"
)

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

// SetLogger sets the package-level logger used by the runtime when no
// per-run logger was supplied via WithLogger.
func SetLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return NewNoOpLogger()
}

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry is a structured log record. Category is one of "registry",
// "parking", "poll", "scheduler", "steal", "park", "runtime".
type LogEntry struct {
	Level     LogLevel
	Category  string
	ThreadID  int
	Token     uint32
	Context   map[string]interface{}
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface implemented by everything
// the runtime logs through.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// DefaultLogger writes to an *os.File, pretty-printing when attached to a
// terminal and emitting line-delimited JSON otherwise.
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   *os.File
}

func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stdout}
	l.level.Store(int32(level))
	return l
}

func NewFileLogger(level LogLevel, filename string) (*DefaultLogger, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := &DefaultLogger{Out: file}
	l.level.Store(int32(level))
	return l, nil
}

func (l *DefaultLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if isTerminal(l.Out) {
		l.logPretty(entry)
	} else {
		l.logJSON(entry)
	}
}

func (l *DefaultLogger) logPretty(entry LogEntry) {
	colorReset := "\033[0m"
	colorError := "\033[31m"
	colorWarn := "\033[33m"
	colorInfo := "\033[36m"
	colorDebug := "\033[90m"
	colorDim := "\033[2m"

	var color string
	switch entry.Level {
	case LevelDebug:
		color = colorDebug
	case LevelInfo:
		color = colorInfo
	case LevelWarn:
		color = colorWarn
	case LevelError:
		color = colorError
	}

	fmt.Fprintf(l.Out, "%s%s%s %s [%-10s] %s%s",
		color, entry.Level.String(), colorReset,
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category,
		entry.Message,
		colorReset,
	)

	if len(entry.Context) > 0 || entry.ThreadID != 0 || entry.Token != 0 {
		fmt.Fprint(l.Out, colorDim)
		if entry.ThreadID != 0 {
			fmt.Fprintf(l.Out, " thread=%d", entry.ThreadID)
		}
		if entry.Token != 0 {
			fmt.Fprintf(l.Out, " token=%d", entry.Token)
		}
		for k, v := range entry.Context {
			fmt.Fprintf(l.Out, " %s=%v", k, v)
		}
		fmt.Fprint(l.Out, colorReset)
	}

	if entry.Err != nil {
		fmt.Fprintf(l.Out, " %s%v%s\n", colorError, entry.Err, colorReset)
	} else {
		fmt.Fprintln(l.Out)
	}
}

func (l *DefaultLogger) logJSON(entry LogEntry) {
	fmt.Fprintf(l.Out, "{\"timestamp\":\"%s\",\"level\":%q,\"category\":%q",
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Level.String(),
		entry.Category,
	)
	if entry.ThreadID != 0 {
		fmt.Fprintf(l.Out, ",\"thread\":%d", entry.ThreadID)
	}
	if entry.Token != 0 {
		fmt.Fprintf(l.Out, ",\"token\":%d", entry.Token)
	}
	for k, v := range entry.Context {
		if s, ok := v.(string); ok {
			fmt.Fprintf(l.Out, ",%q:%q", k, s)
		} else {
			fmt.Fprintf(l.Out, ",%q:%v", k, v)
		}
	}
	fmt.Fprintf(l.Out, ",\"message\":%q", entry.Message)
	if entry.Err != nil {
		fmt.Fprintf(l.Out, ",\"error\":%q}\n", entry.Err.Error())
	} else {
		fmt.Fprintln(l.Out, "}")
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// NoOpLogger discards every entry. It is the default until SetLogger or
// WithLogger is used.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Log(LogEntry) {}

func (l *NoOpLogger) IsEnabled(LogLevel) bool { return false }

// WriterLogger writes plain-text lines to an io.Writer. Convenient for
// tests that want to assert on emitted log lines.
type WriterLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	out   io.Writer
}

func NewWriterLogger(level LogLevel, out io.Writer) *WriterLogger {
	l := &WriterLogger{out: out}
	l.level.Store(int32(level))
	return l
}

func (l *WriterLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *WriterLogger) IsEnabled(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

func (l *WriterLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] [%s] [%-10s] %s",
		entry.Level.String(),
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category,
		entry.Message,
	)
	if entry.ThreadID != 0 {
		fmt.Fprintf(l.out, " thread=%d", entry.ThreadID)
	}
	if entry.Token != 0 {
		fmt.Fprintf(l.out, " token=%d", entry.Token)
	}
	for k, v := range entry.Context {
		fmt.Fprintf(l.out, " %s=%v", k, v)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.out, " err=%v\n", entry.Err)
	} else {
		fmt.Fprintln(l.out)
	}
}

// Domain-specific helpers, used throughout scheduler.go/park.go.
//
// Aborted steals and duplicate unpark deliveries are expected under
// contention and can happen at high frequency; they're rate-limited per
// category through noisyLogGate before being logged at Warn, so a
// thundering herd of ordinary contention doesn't flood the log.
var noisyLogGate = ratelog.New(time.Second, 5)

func logRegistryJoin(l Logger, threadID int, peers int) {
	if !l.IsEnabled(LevelInfo) {
		return
	}
	l.Log(LogEntry{Level: LevelInfo, Category: "registry", ThreadID: threadID, Message: "peer joined", Context: map[string]interface{}{"peers": peers}})
}

func logStealOutcome(l Logger, threadID int, outcome string) {
	level := LevelDebug
	if outcome == "aborted" {
		level = LevelWarn
		if !noisyLogGate.Allow("steal-aborted") {
			return
		}
	}
	if !l.IsEnabled(level) {
		return
	}
	l.Log(LogEntry{Level: level, Category: "steal", ThreadID: threadID, Message: "steal attempt", Context: map[string]interface{}{"outcome": outcome}})
}

func logParkRegistered(l Logger, threadID int, token uint32, fd int) {
	if !l.IsEnabled(LevelDebug) {
		return
	}
	l.Log(LogEntry{Level: LevelDebug, Category: "park", ThreadID: threadID, Token: token, Message: "registered wait", Context: map[string]interface{}{"fd": fd}})
}

func logUnparkDelivered(l Logger, threadID int, token uint32, found bool) {
	level := LevelDebug
	msg := "unpark delivered"
	if !found {
		level = LevelWarn
		msg = "unpark for unknown token"
		if !noisyLogGate.Allow("unpark-unknown-token") {
			return
		}
	}
	if !l.IsEnabled(level) {
		return
	}
	l.Log(LogEntry{Level: level, Category: "park", ThreadID: threadID, Token: token, Message: msg})
}

func logCoroutinePanicked(l Logger, threadID int, err error) {
	if !l.IsEnabled(LevelError) {
		return
	}
	l.Log(LogEntry{Level: LevelError, Category: "scheduler", ThreadID: threadID, Message: "coroutine panicked", Err: err})
}

func logInvalidResumeState(l Logger, threadID int, state string) {
	if !l.IsEnabled(LevelWarn) {
		return
	}
	l.Log(LogEntry{Level: LevelWarn, Category: "scheduler", ThreadID: threadID, Message: "resume requested for coroutine outside Suspended/Blocked", Context: map[string]interface{}{"state": state}})
}

func logPollError(l Logger, threadID int, err error) {
	if !l.IsEnabled(LevelWarn) {
		return
	}
	l.Log(LogEntry{Level: LevelWarn, Category: "poll", ThreadID: threadID, Message: "poll error", Err: err})
}
