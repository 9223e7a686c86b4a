package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/greg-hellings/deskshell/pkg/oauthflow"
)

// EnvConfigPath names the environment variable that selects the config file.
const EnvConfigPath = "DESKSHELL_CONFIG"

// Defaults applied by ApplyDefaults.
const (
	DefaultAppID          = "deskshell"
	DefaultConfigFile     = "config.json"
	DefaultWindowLabel    = "oauth"
	DefaultEvent          = "auth-callback"
	DefaultDetection      = "substring"
	DefaultRedirectURL    = "http://wails.localhost/oauth/callback"
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
	DefaultRingBufferSize = 500
	DefaultWindowTitle    = "Sign in"
	DefaultWindowWidth    = 520
	DefaultWindowHeight   = 720
)

// Config represents the top-level configuration file structure
type Config struct {
	AppID      string                    `yaml:"appId"`
	ConfigFile string                    `yaml:"configFile"`
	OAuth      OAuthConfig               `yaml:"oauth"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Logging    LoggingConfig             `yaml:"logging"`
	Window     WindowConfig              `yaml:"window"`
}

// OAuthConfig configures the OAuth window controller.
type OAuthConfig struct {
	WindowLabel string `yaml:"windowLabel"`
	Event       string `yaml:"event"`
	// Detection is "substring" or "structured".
	Detection   string `yaml:"detection"`
	RedirectURL string `yaml:"redirectURL"`
}

// ProviderConfig contains the OAuth client registration for one provider.
type ProviderConfig struct {
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes"`
	RedirectURL  string   `yaml:"redirectURL"`
	AuthURL      string   `yaml:"authURL"`
	TokenURL     string   `yaml:"tokenURL"`
	// APIBaseURL points identity lookups at GitHub Enterprise or a
	// self-hosted GitLab.
	APIBaseURL string `yaml:"apiBaseURL"`
}

// LoggingConfig configures log/slog output.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RingBufferSize int    `yaml:"ringBufferSize"`
}

// WindowConfig sizes the desktop window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.ApplyDefaults()
	return c
}

// LoadFromFile reads a YAML configuration file and returns the parsed Config
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	return &config, nil
}

// Load resolves the config file and loads it. An explicit path must exist.
// Without one, $DESKSHELL_CONFIG is used, then deskshell.yaml in the user
// config directory; if neither is present the defaults are returned.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		c, err := LoadFromFile(path)
		return c, path, err
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return Default(), "", nil
	}
	candidate := filepath.Join(dir, DefaultAppID, "deskshell.yaml")
	if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	c, err := LoadFromFile(candidate)
	return c, candidate, err
}

// ApplyDefaults fills unset fields and validates the result.
func (c *Config) ApplyDefaults() error {
	if c.AppID == "" {
		c.AppID = DefaultAppID
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultConfigFile
	}
	if c.OAuth.WindowLabel == "" {
		c.OAuth.WindowLabel = DefaultWindowLabel
	}
	if c.OAuth.Event == "" {
		c.OAuth.Event = DefaultEvent
	}
	if c.OAuth.Detection == "" {
		c.OAuth.Detection = DefaultDetection
	}
	if c.OAuth.RedirectURL == "" {
		c.OAuth.RedirectURL = DefaultRedirectURL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.RingBufferSize <= 0 {
		c.Logging.RingBufferSize = DefaultRingBufferSize
	}
	if c.Window.Title == "" {
		c.Window.Title = DefaultWindowTitle
	}
	if c.Window.Width <= 0 {
		c.Window.Width = DefaultWindowWidth
	}
	if c.Window.Height <= 0 {
		c.Window.Height = DefaultWindowHeight
	}

	for name, p := range c.Providers {
		if p.RedirectURL == "" {
			p.RedirectURL = c.OAuth.RedirectURL
		}
		// secrets are usually kept out of the file as ${VAR}
		p.ClientID = os.ExpandEnv(p.ClientID)
		p.ClientSecret = os.ExpandEnv(p.ClientSecret)
		if p.ClientID == "" {
			return fmt.Errorf("provider %s: missing required field 'clientId'", name)
		}
		c.Providers[name] = p
	}

	switch c.OAuth.Detection {
	case "substring", "structured":
	default:
		return fmt.Errorf("oauth: unknown detection mode %q (want substring or structured)", c.OAuth.Detection)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q (want text or json)", c.Logging.Format)
	}
	return nil
}

// Provider returns the named provider as an oauthflow.Provider.
func (c *Config) Provider(name string) (oauthflow.Provider, error) {
	p, ok := c.Providers[name]
	if !ok {
		for k, v := range c.Providers {
			if strings.EqualFold(k, name) {
				name, p, ok = k, v, true
				break
			}
		}
	}
	if !ok {
		return oauthflow.Provider{}, fmt.Errorf("provider %q is not configured (configured: %s)", name, strings.Join(c.ProviderNames(), ", "))
	}
	return oauthflow.Provider{
		Name:         name,
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		AuthURL:      p.AuthURL,
		TokenURL:     p.TokenURL,
	}, nil
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for k := range c.Providers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
