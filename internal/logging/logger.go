package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink configures the optional rotating log file written alongside stdout.
type FileSink struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Option func(*options)

type options struct {
	file *FileSink
}

// WithFile tees JSON output into a rotating file. An empty path is ignored.
func WithFile(sink FileSink) Option {
	return func(o *options) {
		if strings.TrimSpace(sink.Path) == "" {
			return
		}
		o.file = &sink
	}
}

func New(environment, level string, opts ...Option) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var writer io.Writer = os.Stdout
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	if o.file != nil {
		writer = zerolog.MultiLevelWriter(writer, rotatingFile(*o.file))
	}

	logger := zerolog.New(writer).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", "newswire").
		Logger()

	return logger, nil
}

func rotatingFile(sink FileSink) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   sink.Path,
		MaxSize:    sink.MaxSizeMB,
		MaxBackups: sink.MaxBackups,
		MaxAge:     sink.MaxAgeDays,
		Compress:   true,
	}
}
