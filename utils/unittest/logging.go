package unittest

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var verbose = flag.Bool("vv", false, "print debugging logs")

// Logger returns the logger components under test log to. Output is dropped
// unless the test binary runs with -vv.
func Logger() zerolog.Logger {
	if !*verbose {
		return zerolog.Nop()
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
	return zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
