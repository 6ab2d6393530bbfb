// Package logging configures the process-wide phuslu logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Setup points the global logger at w. verbose forces debug output;
// otherwise level is one of debug, info, warn or error (default info).
func Setup(w io.Writer, level string, verbose bool) {
	lvl := parseLevel(level)
	if verbose {
		lvl = log.DebugLevel
	}

	color := false
	if f, ok := w.(*os.File); ok {
		color = log.IsTerminal(f.Fd())
	}

	log.DefaultLogger = log.Logger{
		Level:      lvl,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: color,
			QuoteString: true,
		},
	}
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
