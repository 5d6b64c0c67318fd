package pebble

import (
	"github.com/rs/zerolog"
)

// logger implements pebble's Logger interface on top of zerolog.
type logger struct {
	log zerolog.Logger
}

func newLogger(log zerolog.Logger) *logger {
	return &logger{log: log.With().Str("component", "pebble").Logger()}
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *logger) Fatalf(format string, args ...interface{}) {
	l.log.Fatal().Msgf(format, args...)
}
