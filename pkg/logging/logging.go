// Package logging configures log/slog for the CLI and the desktop host and
// keeps a bounded history of recent records for display in the shell.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when a non-positive ring capacity is requested.
const DefaultCapacity = 500

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Setup installs a default logger writing to w and returns the ring that
// captures its records.
func Setup(w io.Writer, level slog.Level, format string, capacity int) (*RingHandler, error) {
	base, err := NewHandler(w, level, format)
	if err != nil {
		return nil, err
	}
	ring := NewRingHandler(base, capacity, level)
	slog.SetDefault(slog.New(ring))
	slog.Debug("Logging initialized", "level", level.String(), "format", format)
	return ring, nil
}

// Entry is one captured log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

type ring struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

func (r *ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.capacity {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.capacity-1]
	}
	r.entries = append(r.entries, e)
}

// RingHandler forwards records to next and keeps the most recent ones at or
// above level. Handlers derived with WithAttrs/WithGroup share the buffer.
type RingHandler struct {
	next   slog.Handler
	level  slog.Level
	buf    *ring
	attrs  []slog.Attr
	groups []string
}

// NewRingHandler wraps next with a ring of the given capacity.
func NewRingHandler(next slog.Handler, capacity int, level slog.Level) *RingHandler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingHandler{
		next:  next,
		level: level,
		buf:   &ring{capacity: capacity, entries: make([]Entry, 0, capacity)},
	}
}

func (h *RingHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return lvl >= h.level || h.next.Enabled(ctx, lvl)
}

func (h *RingHandler) Handle(ctx context.Context, rec slog.Record) error {
	var err error
	if h.next.Enabled(ctx, rec.Level) {
		err = h.next.Handle(ctx, rec)
	}
	if rec.Level < h.level {
		return err
	}

	e := Entry{Time: rec.Time, Level: rec.Level.String(), Message: rec.Message}
	add := func(key string, v slog.Value) {
		if e.Attrs == nil {
			e.Attrs = map[string]string{}
		}
		e.Attrs[key] = v.Resolve().String()
	}
	// h.attrs already carry the group path open when they were attached
	for _, a := range h.attrs {
		add(a.Key, a.Value)
	}
	prefix := h.prefix()
	rec.Attrs(func(a slog.Attr) bool {
		add(prefix+a.Key, a.Value)
		return true
	})
	h.buf.add(e)
	return err
}

func (h *RingHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.next = h.next.WithAttrs(attrs)
	prefix := h.prefix()
	cp.attrs = append(make([]slog.Attr, 0, len(h.attrs)+len(attrs)), h.attrs...)
	for _, a := range attrs {
		cp.attrs = append(cp.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &cp
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.next = h.next.WithGroup(name)
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

// Entries returns a copy of the retained entries, oldest first.
func (h *RingHandler) Entries() []Entry {
	h.buf.mu.RLock()
	defer h.buf.mu.RUnlock()
	out := make([]Entry, len(h.buf.entries))
	copy(out, h.buf.entries)
	return out
}
