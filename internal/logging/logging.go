// Package logging configures slog for the clipsave binary.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level. An empty or unknown string
// yields def.
func ParseLevel(s string, def slog.Level) slog.Level {
	var l slog.Level
	if s == "" || l.UnmarshalText([]byte(s)) != nil {
		return def
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Options are the user-facing logging knobs.
type Options struct {
	Format string
	Level  string
	// Interactive lowers the default level to debug. A terminal on the
	// output counts as interactive too.
	Interactive bool
}

// New builds a logger writing to w. Text output uses tinter; JSON is used
// when asked for, or under auto when w is not a terminal.
func New(w io.Writer, opts Options) *slog.Logger {
	tty := IsTTY(w)
	def := slog.LevelInfo
	if opts.Interactive || tty {
		def = slog.LevelDebug
	}
	level := ParseLevel(opts.Level, def)

	format := ParseFormat(opts.Format)
	var h slog.Handler
	if format == FormatText || (format == FormatAuto && tty) {
		h = tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

// Setup installs a stderr logger as the slog default and returns it. Call
// once after flag parsing.
func Setup(opts Options) *slog.Logger {
	log := New(os.Stderr, opts)
	slog.SetDefault(log)
	return log
}
