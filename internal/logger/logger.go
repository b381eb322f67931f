// Package logger provides structured logging for schemasync using zap.
//
// Reports are written to stdout, so log output defaults to stderr and the
// two never interleave when a report is piped.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gookit/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dbsmedya/schemasync/internal/config"
)

// Logger wraps zap.SugaredLogger with run, target and object scoping.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// New creates a Logger from configuration. A log file that cannot be opened
// is an error; the file receives plain text and entries are teed to stderr.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	sink, colored, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(buildEncoder(cfg.Format, colored), sink, parseLevel(cfg.Level))
	base := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named("schemasync")
	return wrap(base), nil
}

// NewDefault creates a Logger at info level writing text to stderr.
func NewDefault() *Logger {
	log, _ := New(&config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	return log
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

func wrap(base *zap.Logger) *Logger {
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}

// parseLevel maps a config level to zap. Unknown values fall back to info;
// config validation rejects them before a logger is built.
func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zapcore.InfoLevel
	}
	return lvl
}

func buildEncoder(format string, colored bool) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if colored {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// openSink resolves the output setting. colored reports whether level names
// may carry ANSI colors, which is only the case for a terminal stream.
func openSink(output string) (sink zapcore.WriteSyncer, colored bool, err error) {
	switch output {
	case "stderr", "":
		return zapcore.Lock(os.Stderr), color.SupportColor(), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), color.SupportColor(), nil
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.NewMultiWriteSyncer(zapcore.AddSync(file), zapcore.Lock(os.Stderr)), false, nil
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), base: l.base}
}

// WithMode tags entries with the run mode (schema, view, sync-procedure, ...).
func (l *Logger) WithMode(mode string) *Logger {
	return l.with("mode", mode)
}

// WithTarget returns a Logger scoped to one server/database pair.
func (l *Logger) WithTarget(server, database string) *Logger {
	return l.with("server", server, "database", database)
}

// WithObject returns a Logger scoped to one table, view or procedure.
func (l *Logger) WithObject(objectType, name string) *Logger {
	return l.with("object_type", objectType, "object", name)
}

// WithFields returns a Logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
