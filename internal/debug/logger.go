// Package debug holds the process-wide slog logger that statements and
// client events are reported to. It discards everything until enabled.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	// EnvVar enables debug logging when set to a true value
	EnvVar = "SQLCHAIN_DEBUG"
	// FormatEnvVar selects the handler: "text" (default) or "json"
	FormatEnvVar = "SQLCHAIN_DEBUG_FORMAT"
)

var (
	mu      sync.RWMutex
	logger  *slog.Logger
	enabled bool
)

func init() {
	on, _ := strconv.ParseBool(os.Getenv(EnvVar))
	Init(on)
}

// Init turns debug logging to stderr on or off
func Init(enable bool) {
	if !enable {
		set(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})), false)
		return
	}
	set(New(os.Stderr, os.Getenv(FormatEnvVar)), true)
}

// New builds a debug-level logger writing to w in the given format
func New(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLogger replaces the logger; nil disables logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		Init(false)
		return
	}
	set(l, true)
}

func set(l *slog.Logger, on bool) {
	mu.Lock()
	defer mu.Unlock()
	logger, enabled = l, on
}

// Enabled reports whether anything is logged
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Logger returns the current logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
