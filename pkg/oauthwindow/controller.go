// Package oauthwindow drives the OAuth browser window: it shows the window,
// navigates it to an authorization URL, watches every navigation for a
// callback URL and reports the callback as an event.
//
// The window is only ever shown and hidden. Close requests are turned into
// hides so the browser engine (and its session cookies) survives between
// sign-in attempts.
package oauthwindow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/greg-hellings/deskshell/pkg/events"
	"github.com/greg-hellings/deskshell/pkg/window"
)

// DefaultLabel is the window label looked up when none is configured.
const DefaultLabel = "oauth"

// ErrWindowNotFound is returned when the registry has no OAuth window.
var ErrWindowNotFound = errors.New("oauth window not found")

// NavigationError reports a failed show or navigate step.
type NavigationError struct {
	Step string // "show" or "navigate"
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("oauth window %s failed: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Controller owns the OAuth window lifecycle.
type Controller struct {
	registry  window.Registry
	emitter   events.Emitter
	label     string
	eventName string
	matcher   Matcher
	logger    *slog.Logger

	mu           sync.Mutex
	lastCallback string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLabel sets the registry label of the OAuth window.
func WithLabel(label string) Option {
	return func(c *Controller) {
		if label != "" {
			c.label = label
		}
	}
}

// WithMatcher replaces the default SubstringMatcher.
func WithMatcher(m Matcher) Option {
	return func(c *Controller) {
		if m != nil {
			c.matcher = m
		}
	}
}

// WithEventName overrides events.AuthCallbackEvent.
func WithEventName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.eventName = name
		}
	}
}

// WithLogger sets the logger for event-path failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller for the window registered in reg.
func New(reg window.Registry, emitter events.Emitter, opts ...Option) *Controller {
	c := &Controller{
		registry:  reg,
		emitter:   emitter,
		label:     DefaultLabel,
		eventName: events.AuthCallbackEvent,
		matcher:   SubstringMatcher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Label returns the OAuth window label.
func (c *Controller) Label() string { return c.label }

// EventName returns the name callbacks are emitted under.
func (c *Controller) EventName() string { return c.eventName }

// OpenAuthFlow shows the OAuth window and navigates it to authURL.
func (c *Controller) OpenAuthFlow(authURL string) error {
	w, ok := c.registry.Lookup(c.label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrWindowNotFound, c.label)
	}

	c.mu.Lock()
	c.lastCallback = ""
	c.mu.Unlock()

	if err := w.Show(); err != nil {
		return &NavigationError{Step: "show", Err: err}
	}
	script, err := NavigationScript(authURL)
	if err != nil {
		return &NavigationError{Step: "navigate", Err: err}
	}
	if err := w.Eval(script); err != nil {
		return &NavigationError{Step: "navigate", Err: err}
	}
	c.logger.Debug("OAuth window navigating", "window", c.label)
	return nil
}

// HandleNavigation inspects a URL the OAuth window navigated to. A callback
// URL is emitted once and the window is hidden; anything else is ignored.
func (c *Controller) HandleNavigation(rawURL string) {
	if !c.matcher.IsCallback(rawURL) {
		return
	}

	c.mu.Lock()
	if rawURL == c.lastCallback {
		c.mu.Unlock()
		c.logger.Debug("Ignoring repeated OAuth callback", "window", c.label)
		return
	}
	c.lastCallback = rawURL
	c.mu.Unlock()

	if err := c.emitter.Emit(c.eventName, events.AuthCallback{URL: rawURL}); err != nil {
		c.logger.Error("Failed to emit auth callback", "event", c.eventName, "error", err)
	}
	c.hide()
}

// HandleCloseRequested converts a user close into a hide. It always returns
// true: the close must be cancelled.
func (c *Controller) HandleCloseRequested() (prevent bool) {
	c.hide()
	return true
}

func (c *Controller) hide() {
	w, ok := c.registry.Lookup(c.label)
	if !ok {
		c.logger.Warn("OAuth window missing while hiding", "window", c.label)
		return
	}
	if err := w.Hide(); err != nil {
		c.logger.Error("Failed to hide OAuth window", "window", c.label, "error", err)
	}
}

// NavigationScript builds the script that navigates a window to target.
// target is embedded as a JSON string literal with <, >, &, U+2028 and
// U+2029 escaped, so it can never terminate the literal or the script.
func NavigationScript(target string) (string, error) {
	lit, err := json.Marshal(target)
	if err != nil {
		return "", err
	}
	return "window.location.replace(" + string(lit) + ");", nil
}
