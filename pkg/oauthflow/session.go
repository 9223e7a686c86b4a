package oauthflow

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNoCallback is returned by ParseCallback for URLs without callback parameters.
	ErrNoCallback = errors.New("url carries no oauth callback parameters")
	// ErrStateMismatch means the callback does not belong to this session.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// ProviderError is an error reported by the authorization server in the
// callback URL.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "oauth error: " + e.Code
	}
	return fmt.Sprintf("oauth error: %s - %s", e.Code, e.Description)
}

// Result holds the parameters of a callback URL.
type Result struct {
	Code             string
	State            string
	AccessToken      string
	TokenType        string
	ExpiresIn        string
	Error            string
	ErrorDescription string
}

// ParseCallback extracts callback parameters from the query string and the
// fragment (implicit flow) of rawURL.
func ParseCallback(rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse callback url: %w", err)
	}
	q := u.Query()
	frag, _ := url.ParseQuery(u.Fragment)

	get := func(key string) string {
		if v := q.Get(key); v != "" {
			return v
		}
		return frag.Get(key)
	}
	res := Result{
		Code:             get("code"),
		State:            get("state"),
		AccessToken:      get("access_token"),
		TokenType:        get("token_type"),
		ExpiresIn:        get("expires_in"),
		Error:            get("error"),
		ErrorDescription: get("error_description"),
	}
	if res.Code == "" && res.AccessToken == "" && res.Error == "" {
		return res, ErrNoCallback
	}
	return res, nil
}

// Session is one authorization attempt.
type Session struct {
	Provider string
	State    string
	URL      string

	verifier string
	config   *oauth2.Config
}

// Begin starts an authorization-code flow with PKCE for p.
func Begin(p Provider) (*Session, error) {
	cfg, err := p.OAuth2Config()
	if err != nil {
		return nil, err
	}
	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if strings.EqualFold(p.Name, "google") {
		opts = append(opts, oauth2.AccessTypeOffline)
	}
	return &Session{
		Provider: p.Name,
		State:    state,
		URL:      cfg.AuthCodeURL(state, opts...),
		verifier: verifier,
		config:   cfg,
	}, nil
}

// Complete validates the callback against the session and returns a token,
// exchanging the authorization code when the provider did not hand one out
// directly.
func (s *Session) Complete(ctx context.Context, res Result) (*oauth2.Token, error) {
	if res.Error != "" {
		return nil, &ProviderError{Code: res.Error, Description: res.ErrorDescription}
	}
	if subtle.ConstantTimeCompare([]byte(res.State), []byte(s.State)) != 1 {
		return nil, ErrStateMismatch
	}
	if res.AccessToken != "" {
		tok := &oauth2.Token{AccessToken: res.AccessToken, TokenType: res.TokenType}
		if secs, err := strconv.Atoi(res.ExpiresIn); err == nil && secs > 0 {
			tok.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
		}
		return tok, nil
	}
	if res.Code == "" {
		return nil, ErrNoCallback
	}
	tok, err := s.config.Exchange(ctx, res.Code, oauth2.VerifierOption(s.verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// Config returns the oauth2 configuration used by the session.
func (s *Session) Config() *oauth2.Config { return s.config }

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
