package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) { emit(l.zl.Info(), msg, fields) }

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) { emit(l.zl.Warn(), msg, fields) }

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	walkFields(fields, func(key string, v any) {
		switch val := v.(type) {
		case error:
			ctx = ctx.Str(key, val.Error())
		case fmt.Stringer:
			ctx = ctx.Str(key, val.String())
		default:
			ctx = ctx.Interface(key, val)
		}
	})
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	zlvl := toZerologLevel(level)
	return zlvl >= l.zl.GetLevel() && zlvl >= zerolog.GlobalLevel()
}

func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	walkFields(fields, func(key string, v any) {
		switch val := v.(type) {
		case zerolog.LogObjectMarshaler:
			e.Object(key, val)
			if err, ok := v.(error); ok && key == ErrAttrKey {
				e.Str(key+".message", err.Error())
				appendStacktrace(e, err)
			}
		case error:
			e.Str(key, val.Error())
			if key == ErrAttrKey {
				appendStacktrace(e, val)
			}
		default:
			e.Interface(key, val)
		}
	})
	e.Msg(msg)
}

// walkFields visits alternating key-value pairs. An error in key position is
// reported under ErrAttrKey; a trailing key without value is reported under
// "!BADKEY" like slog does.
func walkFields(fields []any, visit func(key string, v any)) {
	for i := 0; i < len(fields); {
		if err, ok := fields[i].(error); ok {
			visit(ErrAttrKey, err)
			i++
			continue
		}
		if i+1 >= len(fields) {
			visit("!BADKEY", fields[i])
			return
		}
		visit(fmt.Sprint(fields[i]), fields[i+1])
		i += 2
	}
}

func appendStacktrace(e *zerolog.Event, err error) {
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
}

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which for WithStack-wrapped errors is the stack.
// Falls back to the verbose rendering when it carries more than the message.
func extractStacktrace(err error) string {
	details := cerrors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 && details[0] != "" {
		return details[0]
	}
	if verbose := fmt.Sprintf("%+v", err); strings.Contains(verbose, "\n") {
		return verbose
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValueError("ParseLevel", fmt.Sprintf("invalid log level: %q", s))
	}
}

// ZerologProvider is the default LoggerProvider.
type ZerologProvider struct {
	mu   sync.RWMutex
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	zl := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level))
	return &ZerologProvider{base: zl}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.base)
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.base.With().Str(ComponentKey, name).Logger())
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// SetLoggerProvider replaces the process-wide fallback provider.
func SetLoggerProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetLogger returns a logger from the process-wide provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a component logger from the process-wide provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// OrDefault returns l, or the named process-wide logger when l is nil.
func OrDefault(l Logger, name string) Logger {
	if l != nil {
		return l
	}
	return GetLoggerWithName(name)
}

// SetupLogger installs a zerolog provider writing to w at the given level
// and routes errors.Warn through it.
func SetupLogger(level string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}
	p := NewZerologProvider(w, lvl)
	SetLoggerProvider(p)

	warnLogger := p.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(warning error) {
		warnLogger.Warn(warning.Error(), "warning", warning)
	})
	return nil
}
