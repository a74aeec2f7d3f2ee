package logs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
	DEBUG Level = "DEBUG"
)

// levelPriority orders levels; higher is more severe.
var levelPriority = map[Level]int{
	DEBUG: 1,
	INFO:  2,
	WARN:  3,
	ERROR: 4,
}

var slogLevels = map[Level]slog.Level{
	DEBUG: slog.LevelDebug,
	INFO:  slog.LevelInfo,
	WARN:  slog.LevelWarn,
	ERROR: slog.LevelError,
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(raw string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(raw)))
	if level == "WARNING" {
		level = WARN
	}
	if _, ok := levelPriority[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", raw)
	}
	return level, nil
}

// SlogLevel is the log/slog equivalent of l.
func (l Level) SlogLevel() slog.Level {
	return slogLevels[l]
}

type Entry struct {
	TimeStamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger keeps the most recent entries in memory and optionally mirrors
// them to a structured sink.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
	maxSize int
	level   Level
	sink    *slog.Logger
	now     func() time.Time
}

// NewLogger creates a logger recording entries at or above level and
// keeping at most maxSize of them.
func NewLogger(maxSize int, level Level) *Logger {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Logger{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		level:   level,
		now:     time.Now,
	}
}

// WithSink mirrors every recorded entry to sink.
func (l *Logger) WithSink(sink *slog.Logger) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
	return l
}

// log applies level filtering and ring buffer behavior.
// kv is a flat list of alternating keys and values.
func (l *Logger) log(level Level, msg string, kv []any) {
	if levelPriority[level] < levelPriority[l.level] {
		return
	}

	entry := Entry{
		TimeStamp: l.now(),
		Level:     level,
		Message:   msg,
		Fields:    fields(kv),
	}

	l.mu.Lock()
	if len(l.entries) >= l.maxSize {
		// drop oldest
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink.Log(context.Background(), level.SlogLevel(), msg, kv...)
	}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.log(DEBUG, msg, kv)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.log(INFO, msg, kv)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.log(WARN, msg, kv)
}

func (l *Logger) Error(msg string, kv ...any) {
	l.log(ERROR, msg, kv)
}

// GetLast returns copies of the n most recent entries, oldest first.
func (l *Logger) GetLast(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}

	start := len(l.entries) - n
	out := make([]Entry, n)
	for i, e := range l.entries[start:] {
		out[i] = e
		if e.Fields != nil {
			out[i].Fields = make(map[string]any, len(e.Fields))
			for k, v := range e.Fields {
				out[i].Fields[k] = v
			}
		}
	}
	return out
}

func fields(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 == len(kv) {
			out["!BADKEY"] = kv[i]
			break
		}
		value := kv[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		out[key] = value
	}
	return out
}
