package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/lmittmann/tint"
)

type Logger struct {
	logger    *slog.Logger
	level     Level
	publisher atomic.Pointer[publisherHolder]
}

type publisherHolder struct {
	publisher port.LogPublisher
}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// publishTimeout ограничивает отправку одной записи во внешний sink
const publishTimeout = 2 * time.Second

func New(level string) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter создает logger с произвольным writer'ом (используется в тестах)
func NewWithWriter(w io.Writer, level string) *Logger {
	lvl := parseLevel(level)
	handler := tint.NewHandler(w, &tint.Options{
		Level:      slogLevel(lvl),
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stdout,
	})
	return &Logger{
		logger: slog.New(handler),
		level:  lvl,
	}
}

// Nop возвращает logger, который ничего не пишет
func Nop() *Logger {
	return NewWithWriter(io.Discard, "error")
}

func parseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func slogLevel(l Level) slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogPublisher подключает внешний sink (CloudWatch Logs)
func (l *Logger) SetLogPublisher(publisher port.LogPublisher) {
	if publisher == nil {
		l.publisher.Store(nil)
		return
	}
	l.publisher.Store(&publisherHolder{publisher: publisher})
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log(slog.LevelDebug, port.LogLevelDebug, msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= INFO {
		l.log(slog.LevelInfo, port.LogLevelInfo, msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= WARN {
		l.log(slog.LevelWarn, port.LogLevelWarn, msg, args...)
	}
}

func (l *Logger) Error(msg string, err error, args ...interface{}) {
	if l.level <= ERROR {
		if err != nil {
			args = append(args, "error", err.Error())
		}
		l.log(slog.LevelError, port.LogLevelError, msg, args...)
	}
}

// With возвращает logger с постоянными полями
func (l *Logger) With(args ...interface{}) *Logger {
	child := &Logger{
		logger: l.logger.With(args...),
		level:  l.level,
	}
	child.publisher.Store(l.publisher.Load())
	return child
}

func (l *Logger) log(level slog.Level, publishLevel port.LogLevel, msg string, args ...interface{}) {
	l.logger.Log(context.Background(), level, msg, args...)

	holder := l.publisher.Load()
	if holder == nil {
		return
	}

	entry := port.LogEntry{
		Timestamp: time.Now(),
		Level:     publishLevel,
		Message:   msg,
		Fields:    fields(args),
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	// Publisher буферизует записи, ошибку пишем только локально
	if err := holder.publisher.Publish(ctx, entry); err != nil {
		l.logger.Warn("log publisher rejected entry", "error", err.Error())
	}
}

func fields(args []interface{}) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	result := make(map[string]interface{}, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			result[fmt.Sprint(args[i])] = args[i+1]
		}
	}
	return result
}
