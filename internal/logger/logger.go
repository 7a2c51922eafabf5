// Package logger builds the service's zap logger.
//
// Events go to <root>/logs/YYYY-MM-DD.log as JSON through lumberjack, which
// owns rotation and retention.  With Options.Console set (an interactive
// terminal, or log.console in config) the same events are teed to stdout
// with colored levels.  Level is a zap.AtomicLevel, so a config reload can
// raise or lower verbosity without rebuilding cores.
//
// Request handlers get a child logger tagged with the request ID through
// WithContext / FromContext.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is shared by every core New builds.  SetLevel adjusts it at runtime.
var Level = zap.NewAtomicLevelAt(zap.InfoLevel)

// Options tune New.
type Options struct {
	Level   string // debug, info, warn, or error.  Empty keeps the current level.
	Console bool   // tee a colored console core to stdout
}

// New returns a *zap.SugaredLogger that writes JSON to logs/YYYY-MM-DD.log
// below rootDir.  The logger is installed as the process-wide default via
// zap.ReplaceGlobals.
func New(rootDir string, opts Options) (*zap.SugaredLogger, error) {
	logDir := filepath.Join(rootDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	if err := SetLevel(opts.Level); err != nil {
		return nil, err
	}

	fileName := time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), Level),
	}

	if opts.Console {
		conCfg := encCfg
		conCfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(conCfg),
			zapcore.AddSync(os.Stdout),
			Level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	// Make this the global logger so zap.S() works everywhere after startup.
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "console", opts.Console, "level", Level.String())
	return z, nil
}

// SetLevel parses lvl and applies it to every core.  Empty is a no-op.
func SetLevel(lvl string) error {
	if lvl == "" {
		return nil
	}
	return Level.UnmarshalText([]byte(lvl))
}

//
// context helpers
//

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or the global one.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return zap.S()
}
