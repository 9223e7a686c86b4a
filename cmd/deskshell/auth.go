package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/deskshell/pkg/accounts"
	"github.com/greg-hellings/deskshell/pkg/format"
	"github.com/greg-hellings/deskshell/pkg/host/wailshost"
	"github.com/greg-hellings/deskshell/pkg/oauthflow"
	"github.com/greg-hellings/deskshell/pkg/oauthwindow"
	"github.com/greg-hellings/deskshell/pkg/shell"
)

func newAuthCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "auth",
		Short: "OAuth sign-in helpers",
	}
	c.AddCommand(newAuthURLCmd(e), newAuthInspectCmd(e), newAuthLoginCmd(e))
	return c
}

func newAuthURLCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "url <provider>",
		Short: "Print an authorization URL for a configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.cfg.Provider(args[0])
			if err != nil {
				return err
			}
			sess, err := oauthflow.Begin(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sess.URL)
			fmt.Fprintf(out, "state: %s\n", sess.State)
			return nil
		},
	}
}

// inspection is the json shape of `auth inspect`.
type inspection struct {
	URL              string `json:"url"`
	SubstringMatch   bool   `json:"substringMatch"`
	StructuredMatch  bool   `json:"structuredMatch"`
	Code             string `json:"code,omitempty"`
	State            string `json:"state,omitempty"`
	AccessToken      string `json:"accessToken,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
	ParseError       string `json:"parseError,omitempty"`
}

func inspect(rawURL, redirectURL string) inspection {
	in := inspection{
		URL:             rawURL,
		SubstringMatch:  oauthwindow.SubstringMatcher{}.IsCallback(rawURL),
		StructuredMatch: oauthwindow.StructuredMatcher{RedirectURL: redirectURL}.IsCallback(rawURL),
	}
	res, err := oauthflow.ParseCallback(rawURL)
	if err != nil {
		in.ParseError = err.Error()
	}
	in.Code = res.Code
	in.State = res.State
	if res.AccessToken != "" {
		in.AccessToken = accounts.RedactToken(res.AccessToken)
		in.URL = strings.ReplaceAll(rawURL, res.AccessToken, in.AccessToken)
	}
	in.Error = res.Error
	in.ErrorDescription = res.ErrorDescription
	return in
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newAuthInspectCmd(e *env) *cobra.Command {
	var outFormat string
	var noColor bool
	c := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Show how a navigation URL would be treated by the OAuth window",
		Long: strings.TrimSpace(`
Run both callback detectors against a URL and extract the OAuth parameters it
carries. Access tokens are redacted.

The substring detector is what the OAuth window uses by default; the
structured detector also requires the URL to match oauth.redirectURL.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := inspect(args[0], e.cfg.OAuth.RedirectURL)
			out := cmd.OutOrStdout()
			switch strings.ToLower(outFormat) {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(in)
			case "table":
				parseResult := "ok"
				if in.ParseError != "" {
					parseResult = "error: " + in.ParseError
				}
				pairs := []format.Pair{
					{Key: "substring match", Value: yesNo(in.SubstringMatch)},
					{Key: "structured match", Value: yesNo(in.StructuredMatch)},
					{Key: "parse", Value: parseResult},
					{Key: "code", Value: in.Code},
					{Key: "state", Value: in.State},
					{Key: "access_token", Value: in.AccessToken},
					{Key: "error", Value: in.Error},
					{Key: "error_description", Value: in.ErrorDescription},
				}
				f := format.NewConsoleFormatter()
				f.EnableColors = !noColor
				return f.RenderInspection(in.URL, pairs, out)
			default:
				return fmt.Errorf("unsupported format: %s", outFormat)
			}
		},
	}
	c.Flags().StringVarP(&outFormat, "format", "f", "table", "Output format: table|json")
	c.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors (table format)")
	return c
}

type loginResult struct {
	id  *accounts.Identity
	err error
}

func newAuthLoginCmd(e *env) *cobra.Command {
	var timeout time.Duration
	c := &cobra.Command{
		Use:   "login <provider>",
		Short: "Sign in through the OAuth window and link the account",
		Long: strings.TrimSpace(`
Open the desktop OAuth window at the provider's authorization page, wait for
the redirect back, exchange the code and link the signed-in account in the
preferences. The window closes when sign-in completes or the timeout expires.
Closing the window cancels the sign-in.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if _, err := e.cfg.Provider(provider); err != nil {
				return err
			}
			e.store.Initialize()

			done := make(chan loginResult, 1)
			// closing the window hides it; here that also abandons the sign-in
			abort, closed := context.WithCancel(context.Background())
			defer closed()
			var (
				host *wailshost.Host
				sh   *shell.Shell
				err  error
			)
			host, sh, err = e.desktop(wailshost.Options{
				StartHidden:      true,
				OnCloseRequested: closed,
				OnReady: func(ctx context.Context) {
					ctx, cancel := signInContext(ctx, abort, timeout)
					defer cancel()
					id, err := sh.SignIn(ctx, provider)
					done <- loginResult{id: id, err: err}
					host.Quit()
				},
			})
			if err != nil {
				return err
			}

			if err := host.Run(wailshost.NewApp(sh, e.cfg.ProviderNames())); err != nil {
				return err
			}
			select {
			case res := <-done:
				if res.err != nil {
					if abort.Err() != nil {
						return errors.New("sign-in cancelled: the window was closed")
					}
					return fmt.Errorf("sign-in failed: %w", res.err)
				}
				slog.Info("Sign-in complete", "provider", res.id.Provider, "login", res.id.Login)
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %s account %s\n", res.id.Provider, displayName(res.id))
				return nil
			default:
				return errors.New("desktop window exited before sign-in completed")
			}
		},
	}
	c.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the provider to redirect back")
	return c
}

// signInContext bounds a one-shot sign-in by timeout and ends it early once
// abort is done.
func signInContext(parent, abort context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	stop := context.AfterFunc(abort, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func displayName(id *accounts.Identity) string {
	if id.Login != "" {
		return id.Login
	}
	if id.Email != "" {
		return id.Email
	}
	return "(no profile)"
}
