package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
)

// FormatConsole switches output to zerolog's human readable writer.
const FormatConsole = "console"

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warn entries as well as errors.
	WarnStack bool
	Format    string
	Output    io.Writer
}

// Logger wraps zerolog and carries request scoped fields through the context.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &Logger{
		root:      zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger(),
		warnStack: opts.WarnStack,
	}
}

// ForApp builds the logger a binary uses once its configuration is loaded.
func ForApp(service string, app config.AppConfig) *Logger {
	return New(Options{
		ServiceName: service,
		Level:       ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
		Format:      app.LogFormat,
	})
}

// ParseLevel maps a level name to zerolog, falling back to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped := zerolog.Ctx(ctx); scoped != zerolog.DefaultContextLogger && scoped.GetLevel() != zerolog.Disabled {
			return scoped
		}
	}
	return &l.root
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.from(ctx).With().Interface(key, value).Logger().WithContext(ctx)
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.from(ctx).With().Fields(fields).Logger().WithContext(ctx)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "role", role)
}

// WithApp tags entries emitted while serving a specific installed app.
func (l *Logger) WithApp(ctx context.Context, slug string) context.Context {
	return l.WithField(ctx, "app", slug)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.from(ctx).Warn()
	if l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.from(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
