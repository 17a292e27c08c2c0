package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"
)

// Logger builds a logger writing to w in the given format: logfmt, terminal or json.
// The terminal format only colours its output when w is a terminal.
func Logger(w io.Writer, lvl slog.Level, format string) (log.Logger, error) {
	switch strings.ToLower(format) {
	case "", "logfmt":
		return log.NewLogger(log.LogfmtHandlerWithLevel(w, lvl)), nil
	case "terminal", "text":
		return log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, isTerminal(w))), nil
	case "json":
		return log.NewLogger(log.JSONHandlerWithLevel(w, lvl)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q, expected logfmt, terminal or json", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// HexU64 to lazy-format integer attributes for logging
type HexU64 uint64

func (v HexU64) String() string {
	return fmt.Sprintf("%016x", uint64(v))
}

func (v HexU64) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
