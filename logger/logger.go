// Package logger provides the shared logger of the cipkit components.
//
// The default root logger writes through github.com/rs/zerolog with a
// console writer; test binaries silence it unless the debug build tag is set.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cipkit/cipkit/debug"
	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger()

	if !debug.Debug && strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}

}

// SetOutput changes the output of the global logger
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set replaces the global logger
func Set(l zerolog.Logger) {
	logger = l
}

// Disable disables logging
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns the logger components derive their subloggers from
func Logger() zerolog.Logger {
	return logger
}
