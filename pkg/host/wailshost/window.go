package wailshost

import (
	"context"
	"sync"

	"github.com/greg-hellings/deskshell/pkg/window"
)

// Window is the Wails main window seen through window.Window. Wails does not
// report visibility, so it is tracked from the calls made here.
type Window struct {
	label string
	rt    Runtime
	ctx   context.Context

	mu      sync.Mutex
	visible bool
}

var _ window.Window = (*Window)(nil)

func (w *Window) Label() string { return w.label }

func (w *Window) Show() error {
	w.rt.WindowShow(w.ctx)
	w.setVisible(true)
	return nil
}

func (w *Window) Hide() error {
	w.rt.WindowHide(w.ctx)
	w.setVisible(false)
	return nil
}

// Eval runs script in the page. Wails executes it asynchronously and reports
// no result.
func (w *Window) Eval(script string) error {
	w.rt.WindowExecJS(w.ctx, script)
	return nil
}

func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

func (w *Window) setVisible(v bool) {
	w.mu.Lock()
	w.visible = v
	w.mu.Unlock()
}
