// Package logger provides structured logging using zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log zerolog.Logger

// Output formats accepted by Configure.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

const service = "subnest"

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Log = newLogger(os.Stdout, FormatConsole)
}

func newLogger(out io.Writer, format string) zerolog.Logger {
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).With().Timestamp().Str("service", service)
	if format != FormatJSON {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Configure sets the global level and output format. Unknown levels fall
// back to info; unknown formats to console.
func Configure(level, format string) {
	SetLevel(level)
	Log = newLogger(os.Stdout, strings.ToLower(format))
}

// SetLevel sets the global log level.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
