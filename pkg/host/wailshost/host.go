// Package wailshost runs the shell inside a Wails v2 webview. The single
// Wails window serves as the OAuth window: navigation inside it is observed
// through the asset server and close requests are turned into hides.
package wailshost

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/greg-hellings/deskshell/pkg/events"
	"github.com/greg-hellings/deskshell/pkg/oauthwindow"
	"github.com/greg-hellings/deskshell/pkg/window"
)

//go:embed frontend
var frontend embed.FS

// Options configures the host window.
type Options struct {
	Title       string
	Width       int
	Height      int
	WindowLabel string
	// CallbackPath is served with the relay page; see NavigationMiddleware.
	CallbackPath string
	StartHidden  bool
	// Resident shows the window again once a sign-in finishes so the app
	// stays usable; a one-shot login leaves it hidden.
	Resident bool
	// Assets overrides the bundled frontend.
	Assets fs.FS
	Logger *slog.Logger
	// OnReady runs on its own goroutine once the runtime is available.
	OnReady func(ctx context.Context)
	// OnCloseRequested runs after a close request was turned into a hide.
	OnCloseRequested func()
}

// Host owns the Wails runtime context and adapts it to the window and
// events abstractions.
type Host struct {
	opts Options
	rt   Runtime
	bus  *events.Bus

	mu   sync.RWMutex
	ctx  context.Context
	win  *Window
	ctrl *oauthwindow.Controller
	offs []func()
}

var (
	_ window.Registry = (*Host)(nil)
	_ events.Emitter  = (*Host)(nil)
)

// New creates a host publishing to bus as well as to the frontend.
func New(bus *events.Bus, opts Options) *Host {
	return newHost(bus, opts, wailsRuntime{})
}

func newHost(bus *events.Bus, opts Options, rt Runtime) *Host {
	if opts.WindowLabel == "" {
		opts.WindowLabel = oauthwindow.DefaultLabel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Host{opts: opts, rt: rt, bus: bus}
}

// Attach routes navigation and close requests to ctrl.
func (h *Host) Attach(ctrl *oauthwindow.Controller) {
	h.mu.Lock()
	h.ctrl = ctrl
	h.mu.Unlock()
}

func (h *Host) controller() *oauthwindow.Controller {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctrl
}

// Lookup returns the main window once the runtime has started.
func (h *Host) Lookup(label string) (window.Window, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.win == nil || label != h.opts.WindowLabel {
		return nil, false
	}
	return h.win, true
}

// Emit publishes to the local bus and, once started, to the frontend.
func (h *Host) Emit(name string, payload any) error {
	h.mu.RLock()
	ctx := h.ctx
	h.mu.RUnlock()
	if ctx != nil {
		h.rt.EventsEmit(ctx, name, payload)
	}
	return h.bus.Emit(name, payload)
}

// Quit stops the application.
func (h *Host) Quit() {
	h.mu.RLock()
	ctx := h.ctx
	h.mu.RUnlock()
	if ctx != nil {
		h.rt.Quit(ctx)
	}
}

func (h *Host) navigated(rawURL string) {
	if c := h.controller(); c != nil {
		h.opts.Logger.Debug("Webview navigation", "url", redactQuery(rawURL))
		c.HandleNavigation(rawURL)
	}
}

func (h *Host) startup(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.win = &Window{label: h.opts.WindowLabel, rt: h.rt, ctx: ctx, visible: !h.opts.StartHidden}
	h.mu.Unlock()

	off := h.rt.EventsOn(ctx, NavigationEvent, func(data ...interface{}) {
		if len(data) == 0 {
			return
		}
		if s, ok := data[0].(string); ok {
			h.navigated(s)
		}
	})
	h.offs = append(h.offs, off)

	if h.opts.Resident {
		show := func(any) {
			if w, ok := h.Lookup(h.opts.WindowLabel); ok {
				_ = w.Show()
			}
		}
		h.offs = append(h.offs,
			h.bus.On(events.AccountsChangedEvent, show),
			h.bus.On(events.SignInFailedEvent, show),
		)
	}
	h.opts.Logger.Info("Desktop host started", "window", h.opts.WindowLabel)

	if h.opts.OnReady != nil {
		go h.opts.OnReady(ctx)
	}
}

func (h *Host) beforeClose(context.Context) bool {
	c := h.controller()
	if c == nil {
		return false
	}
	prevent := c.HandleCloseRequested()
	if prevent && h.opts.OnCloseRequested != nil {
		h.opts.OnCloseRequested()
	}
	return prevent
}

func (h *Host) shutdown(context.Context) {
	for _, off := range h.offs {
		off()
	}
	h.opts.Logger.Info("Desktop host stopped")
}

// AppOptions builds the Wails application options. bind is exposed to the
// frontend as window.go.wailshost.<Type>.
func (h *Host) AppOptions(bind ...interface{}) (*options.App, error) {
	assets := h.opts.Assets
	if assets == nil {
		sub, err := fs.Sub(frontend, "frontend")
		if err != nil {
			return nil, fmt.Errorf("bundled frontend: %w", err)
		}
		assets = sub
	}
	return &options.App{
		Title:       h.opts.Title,
		Width:       h.opts.Width,
		Height:      h.opts.Height,
		StartHidden: h.opts.StartHidden,
		AssetServer: &assetserver.Options{
			Assets:     assets,
			Middleware: NavigationMiddleware(h.opts.CallbackPath, h.navigated),
		},
		OnStartup:     h.startup,
		OnBeforeClose: h.beforeClose,
		OnShutdown:    h.shutdown,
		Bind:          bind,
		Logger:        NewLogger(h.opts.Logger),
	}, nil
}

// Run starts Wails and blocks until the application quits. It must be
// called from the main goroutine.
func (h *Host) Run(bind ...interface{}) error {
	app, err := h.AppOptions(bind...)
	if err != nil {
		return err
	}
	if err := wails.Run(app); err != nil {
		return fmt.Errorf("desktop host: %w", err)
	}
	return nil
}
