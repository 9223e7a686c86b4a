package accounts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubResolver resolves tokens against the GitHub users API.
type GitHubResolver struct {
	// BaseURL is a GitHub Enterprise URL; empty means github.com.
	BaseURL string
	// HTTPClient is the transport under the oauth2 layer (tests).
	HTTPClient *http.Client
}

var _ Resolver = (*GitHubResolver)(nil)

// Resolve returns the authenticated user.
func (g *GitHubResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("github: empty token")
	}
	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if g.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(g.BaseURL, g.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set GitHub Enterprise URL: %w", err)
		}
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("github: get authenticated user: %w", err)
	}
	return &Identity{
		Provider: string(ProviderGitHub),
		ID:       strconv.FormatInt(user.GetID(), 10),
		Login:    user.GetLogin(),
		Name:     user.GetName(),
		Email:    user.GetEmail(),
	}, nil
}
