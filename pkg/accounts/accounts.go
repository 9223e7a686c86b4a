// Package accounts resolves the identity behind an OAuth token and keeps the
// list of linked accounts inside the preferences blob.
//
// Only identities are persisted. Tokens stay in a CredentialStore for the
// lifetime of the process.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/greg-hellings/deskshell/pkg/prefs"
)

// PreferencesKey is the preferences object key holding linked accounts.
const PreferencesKey = "linkedAccounts"

// Identity is a linked account.
type Identity struct {
	Provider string    `json:"provider"`
	ID       string    `json:"id"`
	Login    string    `json:"login"`
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	LinkedAt time.Time `json:"linkedAt"`
}

// Resolver looks up the account that owns an access token.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// ProviderType names a provider with an identity resolver.
type ProviderType string

const (
	ProviderGitHub ProviderType = "github"
	ProviderGitLab ProviderType = "gitlab"
)

// SupportedProviders returns the providers NewResolver accepts.
func SupportedProviders() []string {
	return []string{string(ProviderGitHub), string(ProviderGitLab)}
}

// NewResolver returns the resolver for provider. baseURL selects a GitHub
// Enterprise or self-hosted GitLab API; empty means the public service.
func NewResolver(provider, baseURL string) (Resolver, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(provider))) {
	case ProviderGitHub:
		return &GitHubResolver{BaseURL: baseURL}, nil
	case ProviderGitLab:
		return &GitLabResolver{BaseURL: baseURL}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: github, gitlab)", provider)
	}
}

// List returns the linked accounts stored in the preferences.
func List(repo prefs.Repository) ([]Identity, error) {
	p, err := repo.GetPreferences()
	if err != nil {
		return nil, err
	}
	m, ok := p.(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, ok := m[PreferencesKey]
	if !ok || raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode linked accounts: %w", err)
	}
	var out []Identity
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode linked accounts: %w", err)
	}
	return out, nil
}

// Link stores id, replacing any account already linked for the same provider.
// Non-object preferences are replaced by an object.
func Link(repo prefs.Repository, id Identity) error {
	if id.Provider == "" {
		return fmt.Errorf("identity has no provider")
	}
	if id.LinkedAt.IsZero() {
		id.LinkedAt = time.Now().UTC()
	}
	return update(repo, func(list []Identity) ([]Identity, bool) {
		list = remove(list, id.Provider)
		return append(list, id), true
	})
}

// Unlink removes the account linked for provider. It reports whether an
// account was removed. Nothing is written when no account matched.
func Unlink(repo prefs.Repository, provider string) (bool, error) {
	removed := false
	err := update(repo, func(list []Identity) ([]Identity, bool) {
		out := remove(list, provider)
		removed = len(out) != len(list)
		return out, removed
	})
	return removed, err
}

// update applies fn to the linked accounts and saves the result when fn
// reports a change.
func update(repo prefs.Repository, fn func([]Identity) ([]Identity, bool)) error {
	list, err := List(repo)
	if err != nil {
		return err
	}
	p, err := repo.GetPreferences()
	if err != nil {
		return err
	}
	next := map[string]any{}
	if m, ok := p.(map[string]any); ok {
		for k, v := range m {
			next[k] = v
		}
	}

	list, changed := fn(list)
	if !changed {
		return nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Provider < list[j].Provider })

	// store as plain JSON values so the blob stays opaque to other readers
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode linked accounts: %w", err)
	}
	var plain []any
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("decode linked accounts: %w", err)
	}
	next[PreferencesKey] = plain
	return repo.SetPreferences(next)
}

func remove(list []Identity, provider string) []Identity {
	out := make([]Identity, 0, len(list))
	for _, id := range list {
		if !strings.EqualFold(id.Provider, provider) {
			out = append(out, id)
		}
	}
	return out
}
