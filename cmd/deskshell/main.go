package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/deskshell/pkg/accounts"
	"github.com/greg-hellings/deskshell/pkg/config"
	"github.com/greg-hellings/deskshell/pkg/events"
	"github.com/greg-hellings/deskshell/pkg/host/wailshost"
	"github.com/greg-hellings/deskshell/pkg/logging"
	"github.com/greg-hellings/deskshell/pkg/oauthwindow"
	"github.com/greg-hellings/deskshell/pkg/prefs"
	"github.com/greg-hellings/deskshell/pkg/shell"
)

// build-time override (e.g. -ldflags "-X main.version=1.2.3")
var version = "dev"

// rootFlags holds the persistent flags.
type rootFlags struct {
	verbose    bool
	debug      bool
	configPath string
	prefsDir   string
}

// env is what every subcommand works against, built once the flags are
// parsed.
type env struct {
	cfg     *config.Config
	cfgPath string
	store   *prefs.Store
	ring    *logging.RingHandler
}

func main() {
	root := newRootCmd()
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root Cobra command.
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	e := &env{}

	cmd := &cobra.Command{
		Use:   "deskshell",
		Short: "Desktop shell: preferences store and OAuth sign-in window",
		Long: strings.TrimSpace(`
deskshell keeps a JSON preferences file in the per-user config directory and
drives a desktop webview through OAuth sign-in, emitting auth-callback when
the provider redirects back.

The shell configuration (providers, window, logging) is read from --config,
$DESKSHELL_CONFIG or <user config dir>/deskshell/deskshell.yaml.`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(flags)
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose (info) logging")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging (overrides --verbose)")
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Shell configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&flags.prefsDir, "prefs-dir", "", "Directory holding the preferences file (default: per-user config dir)")
	cmd.Version = version

	cmd.AddCommand(newPrefsCmd(e))
	cmd.AddCommand(newAuthCmd(e))
	cmd.AddCommand(newAccountsCmd(e))
	cmd.AddCommand(newRunCmd(e))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// newVersionCmd prints version info (simple helper).
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deskshell version: %s\n", version)
		},
	}
}

func (e *env) init(flags *rootFlags) error {
	cfg, path, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e.cfg, e.cfgPath = cfg, path

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	switch {
	case flags.debug:
		level = slog.LevelDebug
	case flags.verbose && level > slog.LevelInfo:
		level = slog.LevelInfo
	}
	ring, err := logging.Setup(os.Stderr, level, cfg.Logging.Format, cfg.Logging.RingBufferSize)
	if err != nil {
		return err
	}
	e.ring = ring

	opts := []prefs.Option{prefs.WithFileName(cfg.ConfigFile), prefs.WithLogger(slog.Default())}
	if flags.prefsDir != "" {
		opts = append(opts, prefs.WithDir(flags.prefsDir))
	}
	e.store = prefs.NewStore(cfg.AppID, opts...)
	slog.Debug("Configuration loaded", "config", path, "appId", cfg.AppID)
	return nil
}

// desktop wires the Wails host, the OAuth window controller and the shell.
func (e *env) desktop(opts wailshost.Options) (*wailshost.Host, *shell.Shell, error) {
	matcher, err := oauthwindow.MatcherByName(e.cfg.OAuth.Detection, e.cfg.OAuth.RedirectURL)
	if err != nil {
		return nil, nil, err
	}

	opts.Title = e.cfg.Window.Title
	opts.Width = e.cfg.Window.Width
	opts.Height = e.cfg.Window.Height
	opts.WindowLabel = e.cfg.OAuth.WindowLabel
	opts.CallbackPath = wailshost.CallbackPath(e.cfg.OAuth.RedirectURL)
	opts.Logger = slog.Default()

	bus := events.NewBus()
	host := wailshost.New(bus, opts)
	ctrl := oauthwindow.New(host, host,
		oauthwindow.WithLabel(e.cfg.OAuth.WindowLabel),
		oauthwindow.WithEventName(e.cfg.OAuth.Event),
		oauthwindow.WithMatcher(matcher),
		oauthwindow.WithLogger(slog.Default()),
	)
	host.Attach(ctrl)

	sh := shell.New(e.store, ctrl, bus,
		shell.WithProviders(e.cfg.Provider),
		shell.WithResolvers(e.resolver),
		shell.WithCredentials(accounts.NewLayeredCredentials(accounts.EnvCredentials{}, nil)),
		shell.WithNotifier(host),
		shell.WithRing(e.ring),
		shell.WithLogger(slog.Default()),
	)
	return host, sh, nil
}

func (e *env) resolver(provider string) (accounts.Resolver, error) {
	var baseURL string
	if pc, ok := e.cfg.Providers[provider]; ok {
		baseURL = pc.APIBaseURL
	}
	return accounts.NewResolver(provider, baseURL)
}
