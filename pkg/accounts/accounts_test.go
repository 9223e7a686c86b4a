package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/greg-hellings/deskshell/pkg/prefs"
)

func TestNewResolver(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"github", "*accounts.GitHubResolver", false},
		{" GitLab ", "*accounts.GitLabResolver", false},
		{"google", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			r, err := NewResolver(tt.provider, "")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch r.(type) {
			case *GitHubResolver:
				if tt.want != "*accounts.GitHubResolver" {
					t.Errorf("got GitHubResolver for %q", tt.provider)
				}
			case *GitLabResolver:
				if tt.want != "*accounts.GitLabResolver" {
					t.Errorf("got GitLabResolver for %q", tt.provider)
				}
			}
		})
	}
}

func TestGitHubResolver(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/user" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    1234,
			"login": "octocat",
			"name":  "The Octocat",
			"email": "octo@example.com",
		})
	}))
	defer srv.Close()

	r := &GitHubResolver{BaseURL: srv.URL, HTTPClient: srv.Client()}
	id, err := r.Resolve(context.Background(), "gho_secret")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id.Provider != "github" || id.ID != "1234" || id.Login != "octocat" || id.Email != "octo@example.com" {
		t.Errorf("unexpected identity %+v", id)
	}
	if gotAuth != "Bearer gho_secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestGitHubResolver_Errors(t *testing.T) {
	if _, err := (&GitHubResolver{}).Resolve(context.Background(), ""); err == nil {
		t.Error("expected error for empty token")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()

	r := &GitHubResolver{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := r.Resolve(context.Background(), "bad"); err == nil {
		t.Error("expected error for 401")
	}
}

func TestGitLabResolver(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/user" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"username":"tanuki","name":"Tanuki","public_email":"tanuki@example.com"}`))
	}))
	defer srv.Close()

	r := &GitLabResolver{BaseURL: srv.URL, HTTPClient: srv.Client()}
	id, err := r.Resolve(context.Background(), "glpat")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id.Provider != "gitlab" || id.ID != "42" || id.Login != "tanuki" || id.Email != "tanuki@example.com" {
		t.Errorf("unexpected identity %+v", id)
	}
	if gotAuth != "Bearer glpat" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestUnlink_AbsentProviderLeavesPreferencesUntouched(t *testing.T) {
	tests := []struct {
		name  string
		prefs any
	}{
		{"object without accounts", map[string]any{"theme": "dark"}},
		{"array", []any{"theme", "dark"}},
		{"scalar", "dark"},
		{"object with other account", map[string]any{
			"theme":        "dark",
			PreferencesKey: []any{map[string]any{"provider": "gitlab", "id": "1"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := prefs.NewMemoryRepository()
			if err := repo.SetPreferences(tt.prefs); err != nil {
				t.Fatal(err)
			}

			removed, err := Unlink(repo, "github")
			if err != nil || removed {
				t.Fatalf("Unlink() = %v, %v", removed, err)
			}
			got, _ := repo.GetPreferences()
			if !reflect.DeepEqual(got, tt.prefs) {
				t.Errorf("preferences changed: got %#v, want %#v", got, tt.prefs)
			}
		})
	}
}

func TestLinkUnlinkList(t *testing.T) {
	repo := prefs.NewMemoryRepository()
	if err := repo.SetPreferences(map[string]any{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}

	list, err := List(repo)
	if err != nil || len(list) != 0 {
		t.Fatalf("List() on fresh prefs = %v, %v", list, err)
	}

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := Link(repo, Identity{Provider: "gitlab", ID: "1", Login: "a", LinkedAt: at}); err != nil {
		t.Fatal(err)
	}
	if err := Link(repo, Identity{Provider: "github", ID: "2", Login: "b", LinkedAt: at}); err != nil {
		t.Fatal(err)
	}
	// relinking replaces
	if err := Link(repo, Identity{Provider: "github", ID: "3", Login: "c", LinkedAt: at}); err != nil {
		t.Fatal(err)
	}

	list, err = List(repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Provider != "github" || list[0].Login != "c" || list[1].Provider != "gitlab" {
		t.Fatalf("unexpected list %+v", list)
	}
	if !list[0].LinkedAt.Equal(at) {
		t.Errorf("LinkedAt = %v", list[0].LinkedAt)
	}

	p, _ := repo.GetPreferences()
	if m := p.(map[string]any); m["theme"] != "dark" {
		t.Errorf("other preferences lost: %v", m)
	}

	removed, err := Unlink(repo, "GitHub")
	if err != nil || !removed {
		t.Fatalf("Unlink() = %v, %v", removed, err)
	}
	removed, err = Unlink(repo, "github")
	if err != nil || removed {
		t.Fatalf("second Unlink() = %v, %v", removed, err)
	}
	list, _ = List(repo)
	if len(list) != 1 || list[0].Provider != "gitlab" {
		t.Errorf("unexpected list after unlink %+v", list)
	}
}

func TestLink_NonObjectPreferences(t *testing.T) {
	repo := prefs.NewMemoryRepository()
	if err := repo.SetPreferences([]any{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := Link(repo, Identity{Provider: "github", Login: "a"}); err != nil {
		t.Fatal(err)
	}
	list, err := List(repo)
	if err != nil || len(list) != 1 || list[0].LinkedAt.IsZero() {
		t.Fatalf("List() = %+v, %v", list, err)
	}
	if err := Link(repo, Identity{}); err == nil {
		t.Error("expected error for identity without provider")
	}
}

func TestList_MalformedEntry(t *testing.T) {
	repo := prefs.NewMemoryRepository()
	_ = repo.SetPreferences(map[string]any{PreferencesKey: "not a list"})
	if _, err := List(repo); err == nil {
		t.Error("expected decode error")
	}
}

func TestMemoryCredentials(t *testing.T) {
	s := NewMemoryCredentials()
	if err := s.SetToken("", "x"); err == nil {
		t.Error("expected error for empty provider")
	}
	if _, err := s.GetToken("github"); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
	_ = s.SetToken("GitHub", "tok")
	if tok, err := s.GetToken("github"); err != nil || tok != "tok" {
		t.Errorf("GetToken() = %q, %v", tok, err)
	}
	list, _ := s.Providers()
	if strings.Join(list, ",") != "github" {
		t.Errorf("Providers() = %v", list)
	}
	_ = s.DeleteToken("github")
	_ = s.DeleteToken("github")
	if _, err := s.GetToken("github"); !errors.Is(err, ErrNoToken) {
		t.Errorf("token not deleted: %v", err)
	}
}

func TestLayeredCredentials(t *testing.T) {
	env := EnvCredentials{Getenv: func(k string) string {
		if k == "DESKSHELL_GITLAB_TOKEN" {
			return " from-env "
		}
		return ""
	}}
	mem := NewMemoryCredentials()
	l := NewLayeredCredentials(env, mem)

	// env is read-only so writes land in memory
	if err := l.SetToken("github", "mem-tok"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := mem.GetToken("github"); tok != "mem-tok" {
		t.Errorf("fallback not written: %q", tok)
	}
	if tok, err := l.GetToken("gitlab"); err != nil || tok != "from-env" {
		t.Errorf("GetToken(gitlab) = %q, %v", tok, err)
	}
	if tok, err := l.GetToken("github"); err != nil || tok != "mem-tok" {
		t.Errorf("GetToken(github) = %q, %v", tok, err)
	}
	list, err := l.Providers()
	if err != nil || strings.Join(list, ",") != "github,gitlab" {
		t.Errorf("Providers() = %v, %v", list, err)
	}
	if err := l.DeleteToken("github"); err != nil {
		t.Error(err)
	}
	if _, err := l.GetToken("github"); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestRedactToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"abc":          "***",
		"abcd":         "***",
		"ghp_12345678": "ghp_***",
	}
	for in, want := range tests {
		if got := RedactToken(in); got != want {
			t.Errorf("RedactToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName(" github "); got != "DESKSHELL_GITHUB_TOKEN" {
		t.Errorf("EnvName() = %q", got)
	}
}
