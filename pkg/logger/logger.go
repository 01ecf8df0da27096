// Package logger builds the zerolog logger shared by the daemon and its
// subcommands.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"token-ledger/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "token-ledger"

// FromConfig builds the process logger from cfg. Output goes to stdout, as
// console text when cfg.Pretty is set. With cfg.File, JSON lines are also
// appended to a size-rotated file and the returned closer releases it.
func FromConfig(cfg config.LogConfig) (zerolog.Logger, io.Closer) {
	var stdout io.Writer = os.Stdout
	if cfg.Pretty {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if cfg.File == "" {
		return withContext(zerolog.New(stdout), cfg.Level).Caller().Logger(), nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	w := zerolog.MultiLevelWriter(stdout, rotator)
	return withContext(zerolog.New(w), cfg.Level).Caller().Logger(), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewWithWriter writes JSON lines to w. Tests use it to capture output.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return withContext(zerolog.New(w), level).Logger()
}

func withContext(l zerolog.Logger, level string) zerolog.Context {
	return l.Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName)
}

// ParseLevel maps a level name to a zerolog level. Unknown or empty names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
