package oauthflow

import (
	"context"
	"fmt"

	"github.com/greg-hellings/deskshell/pkg/events"
)

// Waiter captures the first auth-callback URL published on a bus.
type Waiter struct {
	urls chan string
	off  func()
}

// NewWaiter subscribes to eventName on bus. Close releases the subscription.
func NewWaiter(bus *events.Bus, eventName string) *Waiter {
	w := &Waiter{urls: make(chan string, 1)}
	w.off = bus.On(eventName, func(payload any) {
		u, ok := callbackURL(payload)
		if !ok {
			return
		}
		select {
		case w.urls <- u:
		default:
		}
	})
	return w
}

// Wait blocks until a callback URL arrives or ctx is done.
func (w *Waiter) Wait(ctx context.Context) (string, error) {
	select {
	case u := <-w.urls:
		return u, nil
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Close unsubscribes from the bus.
func (w *Waiter) Close() { w.off() }

func callbackURL(payload any) (string, bool) {
	switch p := payload.(type) {
	case events.AuthCallback:
		return p.URL, p.URL != ""
	case *events.AuthCallback:
		if p == nil {
			return "", false
		}
		return p.URL, p.URL != ""
	case map[string]any:
		s, ok := p["url"].(string)
		return s, ok && s != ""
	case string:
		return p, p != ""
	default:
		return "", false
	}
}
