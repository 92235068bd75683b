package config

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the logger described by l, writing to w.
func NewLogger(l Log, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if l.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(l.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}
	if l.Format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "rbel").Logger(), nil
}
