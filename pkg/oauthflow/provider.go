// Package oauthflow builds authorization URLs for the sign-in providers and
// turns the callback URL reported by the OAuth window into a token.
package oauthflow

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/gitlab"
	"golang.org/x/oauth2/google"
)

// Provider describes an OAuth application registration.
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// AuthURL and TokenURL override the built-in endpoint for Name.
	AuthURL  string
	TokenURL string
}

var builtinEndpoints = map[string]oauth2.Endpoint{
	"github": github.Endpoint,
	"gitlab": gitlab.Endpoint,
	"google": google.Endpoint,
}

var defaultScopes = map[string][]string{
	"github": {"read:user", "user:email"},
	"gitlab": {"read_user"},
	"google": {"openid", "email", "profile"},
}

// BuiltinProviders lists provider names with a known endpoint.
func BuiltinProviders() []string {
	names := make([]string, 0, len(builtinEndpoints))
	for n := range builtinEndpoints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OAuth2Config converts the registration to an oauth2.Config.
func (p Provider) OAuth2Config() (*oauth2.Config, error) {
	if p.ClientID == "" {
		return nil, fmt.Errorf("provider %s: missing client id", p.Name)
	}
	endpoint, ok := builtinEndpoints[strings.ToLower(p.Name)]
	if p.AuthURL != "" || p.TokenURL != "" {
		if p.AuthURL == "" || p.TokenURL == "" {
			return nil, fmt.Errorf("provider %s: authURL and tokenURL must both be set", p.Name)
		}
		endpoint = oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
	} else if !ok {
		return nil, fmt.Errorf("provider %s: no built-in endpoint; set authURL and tokenURL", p.Name)
	}

	scopes := p.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes[strings.ToLower(p.Name)]
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}, nil
}
