package wailshost

import (
	"log/slog"
	"net/url"
	"os"

	"github.com/wailsapp/wails/v2/pkg/logger"
)

// Logger sends Wails log output to slog.
type Logger struct {
	l *slog.Logger
}

var _ logger.Logger = (*Logger)(nil)

// NewLogger wraps l, tagging records with component=wails.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{l: l.With("component", "wails")}
}

func (w *Logger) Print(message string)   { w.l.Info(message) }
func (w *Logger) Trace(message string)   { w.l.Debug(message) }
func (w *Logger) Debug(message string)   { w.l.Debug(message) }
func (w *Logger) Info(message string)    { w.l.Info(message) }
func (w *Logger) Warning(message string) { w.l.Warn(message) }
func (w *Logger) Error(message string)   { w.l.Error(message) }

// Fatal logs and exits, matching the Wails default logger.
func (w *Logger) Fatal(message string) {
	w.l.Error(message)
	os.Exit(1)
}

// redactQuery drops query and fragment so codes and tokens stay out of logs.
func redactQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	if u.Fragment != "" {
		u.Fragment = "redacted"
	}
	return u.String()
}
