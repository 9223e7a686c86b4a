package wailshost

import (
	"github.com/greg-hellings/deskshell/pkg/accounts"
	"github.com/greg-hellings/deskshell/pkg/logging"
	"github.com/greg-hellings/deskshell/pkg/shell"
)

// App is the object bound to the frontend. Errors reach JavaScript as
// rejected promises carrying the error string.
type App struct {
	shell     *shell.Shell
	providers []string
}

// NewApp binds s. providers lists the names offered for sign-in.
func NewApp(s *shell.Shell, providers []string) *App {
	return &App{shell: s, providers: providers}
}

func (a *App) GetPreferences() (any, error) { return a.shell.GetPreferences() }

func (a *App) SetPreferences(prefs any) error { return a.shell.SetPreferences(prefs) }

func (a *App) OpenAuthFlow(url string) error { return a.shell.OpenAuthFlow(url) }

func (a *App) LinkedAccounts() ([]accounts.Identity, error) { return a.shell.LinkedAccounts() }

func (a *App) UnlinkAccount(provider string) error { return a.shell.UnlinkAccount(provider) }

// SignIn starts a sign-in and returns immediately; completion is reported
// through the accounts-changed and sign-in-failed events.
func (a *App) SignIn(provider string) error { return a.shell.StartSignIn(provider) }

func (a *App) Providers() []string { return append([]string(nil), a.providers...) }

func (a *App) RecentLogs() []logging.Entry { return a.shell.RecentLogs() }
