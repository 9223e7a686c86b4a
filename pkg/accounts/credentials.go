package accounts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// TokenEnvPrefix prefixes the per-provider token environment variables,
// e.g. DESKSHELL_GITHUB_TOKEN.
const TokenEnvPrefix = "DESKSHELL_"

// ErrNoToken is returned when no token is held for a provider.
var ErrNoToken = errors.New("no token for provider")

// CredentialStore holds access tokens keyed by provider name.
type CredentialStore interface {
	SetToken(provider, token string) error
	// GetToken returns ErrNoToken when the provider has no token.
	GetToken(provider string) (string, error)
	// DeleteToken is idempotent.
	DeleteToken(provider string) error
	Providers() ([]string, error)
}

// MemoryCredentials is a process-lifetime CredentialStore.
type MemoryCredentials struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryCredentials returns an empty store.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{tokens: map[string]string{}}
}

func (m *MemoryCredentials) SetToken(provider, token string) error {
	provider = normalizeProvider(provider)
	if provider == "" {
		return errors.New("provider cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[provider] = token
	return nil
}

func (m *MemoryCredentials) GetToken(provider string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[normalizeProvider(provider)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoToken, provider)
	}
	return tok, nil
}

func (m *MemoryCredentials) DeleteToken(provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, normalizeProvider(provider))
	return nil
}

func (m *MemoryCredentials) Providers() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// EnvCredentials reads tokens from DESKSHELL_<PROVIDER>_TOKEN. It is
// read-only; writes report an error so a LayeredCredentials falls through.
type EnvCredentials struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

func (e EnvCredentials) getenv(k string) string {
	if e.Getenv != nil {
		return e.Getenv(k)
	}
	return os.Getenv(k)
}

// EnvName returns the variable consulted for provider.
func EnvName(provider string) string {
	return TokenEnvPrefix + strings.ToUpper(normalizeProvider(provider)) + "_TOKEN"
}

func (e EnvCredentials) SetToken(_, _ string) error {
	return errors.New("environment credentials are read-only")
}

func (e EnvCredentials) GetToken(provider string) (string, error) {
	if v := strings.TrimSpace(e.getenv(EnvName(provider))); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoToken, provider)
}

func (e EnvCredentials) DeleteToken(string) error { return nil }

func (e EnvCredentials) Providers() ([]string, error) {
	var out []string
	for _, p := range SupportedProviders() {
		if _, err := e.GetToken(p); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// LayeredCredentials reads from primary first and writes to the first layer
// that accepts the token.
type LayeredCredentials struct {
	primary  CredentialStore
	fallback CredentialStore
}

// NewLayeredCredentials layers primary over fallback. A nil fallback becomes
// a MemoryCredentials.
func NewLayeredCredentials(primary, fallback CredentialStore) *LayeredCredentials {
	if fallback == nil {
		fallback = NewMemoryCredentials()
	}
	return &LayeredCredentials{primary: primary, fallback: fallback}
}

func (l *LayeredCredentials) SetToken(provider, token string) error {
	if l.primary != nil && l.primary.SetToken(provider, token) == nil {
		return nil
	}
	return l.fallback.SetToken(provider, token)
}

func (l *LayeredCredentials) GetToken(provider string) (string, error) {
	if l.primary != nil {
		tok, err := l.primary.GetToken(provider)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNoToken) {
			return "", fmt.Errorf("primary credentials: %w", err)
		}
	}
	return l.fallback.GetToken(provider)
}

func (l *LayeredCredentials) DeleteToken(provider string) error {
	var errs []error
	if l.primary != nil {
		errs = append(errs, l.primary.DeleteToken(provider))
	}
	errs = append(errs, l.fallback.DeleteToken(provider))
	return errors.Join(errs...)
}

func (l *LayeredCredentials) Providers() ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	add := func(s CredentialStore) error {
		if s == nil {
			return nil
		}
		list, err := s.Providers()
		if err != nil {
			return err
		}
		for _, p := range list {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		return nil
	}
	if err := add(l.primary); err != nil {
		return nil, fmt.Errorf("primary credentials: %w", err)
	}
	if err := add(l.fallback); err != nil {
		return nil, fmt.Errorf("fallback credentials: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// RedactToken keeps at most the first four characters of tok.
func RedactToken(tok string) string {
	if tok == "" {
		return ""
	}
	if len(tok) <= 4 {
		return "***"
	}
	return tok[:4] + "***"
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
