package accounts

import (
	"context"
	"fmt"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabResolver resolves OAuth tokens against the GitLab users API.
type GitLabResolver struct {
	// BaseURL is a self-hosted GitLab URL; empty means gitlab.com.
	BaseURL    string
	HTTPClient *http.Client
}

var _ Resolver = (*GitLabResolver)(nil)

// Resolve returns the current user.
func (g *GitLabResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("gitlab: empty token")
	}
	opts := []gitlab.ClientOptionFunc{}
	if g.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(g.BaseURL))
	}
	if g.HTTPClient != nil {
		opts = append(opts, gitlab.WithHTTPClient(g.HTTPClient))
	}
	client, err := gitlab.NewOAuthClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	user, _, err := client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("gitlab: get current user: %w", err)
	}
	email := user.Email
	if email == "" {
		email = user.PublicEmail
	}
	return &Identity{
		Provider: string(ProviderGitLab),
		ID:       fmt.Sprint(user.ID),
		Login:    user.Username,
		Name:     user.Name,
		Email:    email,
	}, nil
}
