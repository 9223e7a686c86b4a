// Package shell is the command boundary the desktop host exposes to its UI:
// preferences, the OAuth window and linked accounts.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/greg-hellings/deskshell/pkg/accounts"
	"github.com/greg-hellings/deskshell/pkg/events"
	"github.com/greg-hellings/deskshell/pkg/logging"
	"github.com/greg-hellings/deskshell/pkg/oauthflow"
	"github.com/greg-hellings/deskshell/pkg/oauthwindow"
	"github.com/greg-hellings/deskshell/pkg/prefs"
)

// DefaultSignInTimeout bounds StartSignIn.
const DefaultSignInTimeout = 5 * time.Minute

// ProviderFunc returns the OAuth client registration for a provider name.
type ProviderFunc func(name string) (oauthflow.Provider, error)

// ResolverFunc returns the identity resolver for a provider name.
type ResolverFunc func(name string) (accounts.Resolver, error)

// Shell bundles the preferences store and the OAuth window controller.
type Shell struct {
	prefs     prefs.Repository
	ctrl      *oauthwindow.Controller
	bus       *events.Bus
	notify    events.Emitter
	providers ProviderFunc
	resolvers ResolverFunc
	creds     accounts.CredentialStore
	ring      *logging.RingHandler
	logger    *slog.Logger
	timeout   time.Duration
}

// Option configures a Shell.
type Option func(*Shell)

// WithProviders sets the provider lookup used by sign-in.
func WithProviders(fn ProviderFunc) Option {
	return func(s *Shell) { s.providers = fn }
}

// WithResolvers overrides identity resolution. The default resolves github
// and gitlab against their public APIs.
func WithResolvers(fn ResolverFunc) Option {
	return func(s *Shell) { s.resolvers = fn }
}

// WithCredentials sets where access tokens are kept.
func WithCredentials(cs accounts.CredentialStore) Option {
	return func(s *Shell) { s.creds = cs }
}

// WithNotifier sets where account events go. Defaults to the bus.
func WithNotifier(e events.Emitter) Option {
	return func(s *Shell) { s.notify = e }
}

// WithRing exposes captured log entries through RecentLogs.
func WithRing(r *logging.RingHandler) Option {
	return func(s *Shell) { s.ring = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSignInTimeout bounds flows started with StartSignIn.
func WithSignInTimeout(d time.Duration) Option {
	return func(s *Shell) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Shell. bus must be one of the emitters ctrl publishes
// callbacks to.
func New(repo prefs.Repository, ctrl *oauthwindow.Controller, bus *events.Bus, opts ...Option) *Shell {
	s := &Shell{
		prefs: repo,
		ctrl:  ctrl,
		bus:   bus,
		providers: func(name string) (oauthflow.Provider, error) {
			return oauthflow.Provider{}, fmt.Errorf("provider %q is not configured", name)
		},
		resolvers: func(name string) (accounts.Resolver, error) {
			return accounts.NewResolver(name, "")
		},
		creds:   accounts.NewMemoryCredentials(),
		logger:  slog.Default(),
		timeout: DefaultSignInTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notify == nil {
		s.notify = bus
	}
	return s
}

// GetPreferences returns the stored preferences.
func (s *Shell) GetPreferences() (any, error) {
	return s.prefs.GetPreferences()
}

// SetPreferences replaces the stored preferences.
func (s *Shell) SetPreferences(v any) error {
	return s.prefs.SetPreferences(v)
}

// OpenAuthFlow shows the OAuth window at url.
func (s *Shell) OpenAuthFlow(url string) error {
	return s.ctrl.OpenAuthFlow(url)
}

// LinkedAccounts lists linked accounts.
func (s *Shell) LinkedAccounts() ([]accounts.Identity, error) {
	return accounts.List(s.prefs)
}

// UnlinkAccount forgets the account and token for provider.
func (s *Shell) UnlinkAccount(provider string) error {
	removed, err := accounts.Unlink(s.prefs, provider)
	if err != nil {
		return err
	}
	if err := s.creds.DeleteToken(provider); err != nil {
		s.logger.Warn("Failed to delete token", "provider", provider, "error", err)
	}
	if removed {
		s.emit(events.AccountsChangedEvent, nil)
	}
	return nil
}

// RecentLogs returns captured log entries, oldest first.
func (s *Shell) RecentLogs() []logging.Entry {
	if s.ring == nil {
		return nil
	}
	return s.ring.Entries()
}

// SignIn runs a complete authorization for provider: the OAuth window is
// opened at the provider's authorization URL, the callback is exchanged for
// a token and the resolved identity is linked.
func (s *Shell) SignIn(ctx context.Context, provider string) (*accounts.Identity, error) {
	p, err := s.providers(provider)
	if err != nil {
		return nil, err
	}
	sess, err := oauthflow.Begin(p)
	if err != nil {
		return nil, err
	}

	waiter := oauthflow.NewWaiter(s.bus, s.ctrl.EventName())
	defer waiter.Close()

	if err := s.ctrl.OpenAuthFlow(sess.URL); err != nil {
		return nil, err
	}
	s.logger.Info("Waiting for authorization", "provider", p.Name)

	callbackURL, err := waiter.Wait(ctx)
	if err != nil {
		return nil, err
	}
	res, err := oauthflow.ParseCallback(callbackURL)
	if err != nil && !errors.Is(err, oauthflow.ErrNoCallback) {
		return nil, err
	}
	tok, err := sess.Complete(ctx, res)
	if err != nil {
		return nil, err
	}
	if err := s.creds.SetToken(p.Name, tok.AccessToken); err != nil {
		s.logger.Warn("Failed to keep token", "provider", p.Name, "error", err)
	}
	s.logger.Debug("Token obtained", "provider", p.Name, "token", accounts.RedactToken(tok.AccessToken))

	id := &accounts.Identity{Provider: strings.ToLower(p.Name)}
	if r, rerr := s.resolvers(p.Name); rerr == nil {
		resolved, err := r.Resolve(ctx, tok.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("resolve %s identity: %w", p.Name, err)
		}
		id = resolved
	} else {
		s.logger.Info("No identity lookup for provider; linking without profile", "provider", p.Name)
	}

	if err := accounts.Link(s.prefs, *id); err != nil {
		return nil, fmt.Errorf("link %s account: %w", p.Name, err)
	}
	s.logger.Info("Account linked", "provider", id.Provider, "login", id.Login)
	s.emit(events.AccountsChangedEvent, nil)
	return id, nil
}

// StartSignIn runs SignIn in the background. Failures are logged and
// published as SignInFailedEvent; the provider is checked up front.
func (s *Shell) StartSignIn(provider string) error {
	if _, err := s.providers(provider); err != nil {
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.SignIn(ctx, provider); err != nil {
			s.logger.Error("Sign-in failed", "provider", provider, "error", err)
			s.emit(events.SignInFailedEvent, events.SignInFailed{Provider: provider, Error: err.Error()})
		}
	}()
	return nil
}

func (s *Shell) emit(name string, payload any) {
	if err := s.notify.Emit(name, payload); err != nil {
		s.logger.Warn("Failed to emit event", "event", name, "error", err)
	}
}
