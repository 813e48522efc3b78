package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warnings as well as errors.
	WarnStack bool
	// Format is "json" (default) or "console".
	Format string
	Output io.Writer
}

// Logger writes zerolog entries enriched with fields carried on the context.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	base := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger()
	return &Logger{base: base, warnStack: opts.WarnStack}
}

// ParseLevel maps a config string to a level, falling back to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// fields returns the fields attached to ctx. The map is never mutated once
// stored, so derived contexts copy before adding.
func fields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).(map[string]any)
	return f
}

func (l *Logger) WithFields(ctx context.Context, add map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := fields(ctx)
	merged := make(map[string]any, len(prev)+len(add))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range add {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithClaimID(ctx context.Context, claimID string) context.Context {
	return l.WithField(ctx, "claim_id", claimID)
}

func (l *Logger) WithCoverageID(ctx context.Context, coverageID string) context.Context {
	return l.WithField(ctx, "coverage_id", coverageID)
}

func (l *Logger) event(ctx context.Context, level zerolog.Level) *zerolog.Event {
	e := l.base.WithLevel(level)
	if f := fields(ctx); len(f) > 0 {
		e = e.Fields(f)
	}
	return e
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.event(ctx, zerolog.InfoLevel).Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	e := l.event(ctx, zerolog.WarnLevel)
	if l.warnStack {
		e = e.Str("stack", callerStack())
	}
	e.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.event(ctx, zerolog.ErrorLevel).Err(err).Str("stack", callerStack()).Msg(msg)
}

// ErrorFields logs err with extra fields that stay out of ctx.
func (l *Logger) ErrorFields(ctx context.Context, msg string, err error, extra map[string]any) {
	l.event(ctx, zerolog.ErrorLevel).Fields(extra).Err(err).Str("stack", callerStack()).Msg(msg)
}

// callerStack drops the frames of debug.Stack and this package so the trace
// starts at the code that logged.
func callerStack() string {
	lines := strings.Split(strings.TrimSpace(string(debug.Stack())), "\n")
	if len(lines) == 0 {
		return ""
	}
	out := []string{lines[0]}
	skipping := true
	for i := 1; i+1 < len(lines); i += 2 {
		fn := lines[i]
		if skipping && (strings.HasPrefix(fn, "runtime/debug.") || strings.Contains(fn, "/pkg/logger.")) {
			continue
		}
		skipping = false
		out = append(out, fn, lines[i+1])
	}
	return strings.Join(out, "\n")
}
