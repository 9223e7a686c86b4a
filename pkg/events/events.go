// Package events carries notifications from the shell to the rest of the
// application.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// AuthCallbackEvent is emitted when the OAuth window reaches a callback URL.
const AuthCallbackEvent = "auth-callback"

// AuthCallback is the AuthCallbackEvent payload.
type AuthCallback struct {
	URL string `json:"url"`
}

// Sign-in progress events.
const (
	AccountsChangedEvent = "accounts-changed"
	SignInFailedEvent    = "sign-in-failed"
)

// SignInFailed is the SignInFailedEvent payload.
type SignInFailed struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}

// Emitter publishes a named event.
type Emitter interface {
	Emit(name string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(name string, payload any) error

func (f EmitterFunc) Emit(name string, payload any) error { return f(name, payload) }

// Listener receives event payloads.
type Listener func(payload any)

// Bus is an in-process publish/subscribe Emitter. Listeners run
// synchronously on the emitting goroutine, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[string][]subscription
}

type subscription struct {
	id int
	fn Listener
}

var _ Emitter = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]subscription)}
}

// On subscribes fn to name and returns the matching unsubscribe function.
func (b *Bus) On(name string, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[name]
		for i, s := range subs {
			if s.id == id {
				b.listeners[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Emit delivers payload to every listener of name. A panicking listener does
// not stop delivery; the panics are returned joined.
func (b *Bus) Emit(name string, payload any) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.listeners[name]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := deliver(s.fn, payload); err != nil {
			errs = append(errs, fmt.Errorf("listener for %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(fn Listener, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn(payload)
	return nil
}

// Event is a recorded emission.
type Event struct {
	Name    string
	Payload any
}

// Recorder is an Emitter that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from Emit after recording.
	Err error
}

var _ Emitter = (*Recorder)(nil)

func (r *Recorder) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Payload: payload})
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Multi fans an emission out to several emitters, returning all errors joined.
func Multi(emitters ...Emitter) Emitter {
	return EmitterFunc(func(name string, payload any) error {
		var errs []error
		for _, e := range emitters {
			if e == nil {
				continue
			}
			if err := e.Emit(name, payload); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
