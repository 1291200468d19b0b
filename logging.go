package vkframe

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() {
	pkgLogger.Store(NewLogger(os.Stderr, false))
}

// NewLogger builds the text logger used by the package. Verbose lowers the
// level to debug so that device and swap-chain details are printed.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return pkgLogger.Load()
}

// SetLogger replaces the package logger. A nil logger discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pkgLogger.Store(l)
}

// openLogFile opens (appending) the file named by the config's LogFile.
func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	return f, nil
}
