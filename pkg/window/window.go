// Package window describes the host windows the shell drives. The host GUI
// runtime provides the real implementation; MemoryRegistry backs tests and
// headless runs.
package window

import (
	"errors"
	"sync"
)

// Window is a host window that can be shown, hidden and scripted.
type Window interface {
	Label() string
	Show() error
	Hide() error
	// Eval runs script in the window's page context.
	Eval(script string) error
	Visible() bool
}

// Registry looks windows up by label.
type Registry interface {
	Lookup(label string) (Window, bool)
}

// ErrDestroyed is returned by MemoryWindow operations after Destroy.
var ErrDestroyed = errors.New("window destroyed")

// MemoryWindow records every operation applied to it.
type MemoryWindow struct {
	mu        sync.Mutex
	label     string
	visible   bool
	destroyed bool
	scripts   []string
	shows     int
	hides     int

	// FailShow / FailEval make the next operations fail with the given error.
	FailShow error
	FailEval error
}

var _ Window = (*MemoryWindow)(nil)

// NewMemoryWindow creates a hidden window.
func NewMemoryWindow(label string) *MemoryWindow {
	return &MemoryWindow{label: label}
}

func (w *MemoryWindow) Label() string { return w.label }

func (w *MemoryWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrDestroyed
	}
	if w.FailShow != nil {
		return w.FailShow
	}
	w.visible = true
	w.shows++
	return nil
}

func (w *MemoryWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrDestroyed
	}
	w.visible = false
	w.hides++
	return nil
}

func (w *MemoryWindow) Eval(script string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrDestroyed
	}
	if w.FailEval != nil {
		return w.FailEval
	}
	w.scripts = append(w.scripts, script)
	return nil
}

func (w *MemoryWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Destroy marks the window unusable. The shell itself never calls it.
func (w *MemoryWindow) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	w.visible = false
}

// Destroyed reports whether Destroy was called.
func (w *MemoryWindow) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Scripts returns a copy of the evaluated scripts.
func (w *MemoryWindow) Scripts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.scripts...)
}

// Counts returns how many times Show and Hide succeeded.
func (w *MemoryWindow) Counts() (shows, hides int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shows, w.hides
}

// MemoryRegistry is a label-keyed set of windows.
type MemoryRegistry struct {
	mu      sync.RWMutex
	windows map[string]Window
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry registers the given windows under their labels.
func NewMemoryRegistry(windows ...Window) *MemoryRegistry {
	r := &MemoryRegistry{windows: make(map[string]Window)}
	for _, w := range windows {
		r.Add(w)
	}
	return r
}

// Add registers (or replaces) a window.
func (r *MemoryRegistry) Add(w Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[w.Label()] = w
}

// Remove unregisters a window.
func (r *MemoryRegistry) Remove(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, label)
}

// Lookup returns the window registered under label.
func (r *MemoryRegistry) Lookup(label string) (Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[label]
	return w, ok
}
