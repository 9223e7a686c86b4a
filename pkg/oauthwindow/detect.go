package oauthwindow

import (
	"fmt"
	"net/url"
	"strings"
)

// Matcher decides whether a navigation URL is the end of an OAuth flow.
type Matcher interface {
	IsCallback(rawURL string) bool
}

// MatchFunc adapts a function to Matcher.
type MatchFunc func(rawURL string) bool

func (f MatchFunc) IsCallback(rawURL string) bool { return f(rawURL) }

// callbackMarkers are the substrings SubstringMatcher looks for: an implicit
// flow token fragment, an authorization code, or a state parameter.
var callbackMarkers = []string{
	"#access_token=",
	"?code=",
	"&code=",
	"?state=",
	"&state=",
}

// SubstringMatcher flags any URL containing a callback marker. It does not
// parse the URL, so an intermediate redirect hop that carries state= is also
// reported.
type SubstringMatcher struct{}

func (SubstringMatcher) IsCallback(rawURL string) bool {
	for _, m := range callbackMarkers {
		if strings.Contains(rawURL, m) {
			return true
		}
	}
	return false
}

// StructuredMatcher parses the URL and only reports real callback
// parameters. When RedirectURL is set, the URL must also target that
// scheme, host and path.
type StructuredMatcher struct {
	RedirectURL string
}

func (m StructuredMatcher) IsCallback(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if m.RedirectURL != "" {
		r, err := url.Parse(m.RedirectURL)
		if err != nil {
			return false
		}
		if !strings.EqualFold(u.Scheme, r.Scheme) || !strings.EqualFold(u.Host, r.Host) ||
			strings.TrimSuffix(u.Path, "/") != strings.TrimSuffix(r.Path, "/") {
			return false
		}
	}

	q := u.Query()
	for _, key := range []string{"code", "state", "error"} {
		if q.Get(key) != "" {
			return true
		}
	}
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err == nil && (frag.Get("access_token") != "" || frag.Get("error") != "") {
			return true
		}
	}
	return false
}

// MatcherByName returns the matcher for a detection mode:
// "substring" (default) or "structured".
func MatcherByName(name, redirectURL string) (Matcher, error) {
	switch strings.ToLower(name) {
	case "", "substring":
		return SubstringMatcher{}, nil
	case "structured":
		return StructuredMatcher{RedirectURL: redirectURL}, nil
	default:
		return nil, fmt.Errorf("unknown callback detection mode: %s", name)
	}
}
