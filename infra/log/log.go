package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"lobfeed/infra/config"
)

type Logger = zerolog.Logger

func NewLogger(cfg config.Logging) Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.Logging, out io.Writer) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
