package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/deskshell/pkg/host/wailshost"
)

func newRunCmd(e *env) *cobra.Command {
	var hidden bool
	c := &cobra.Command{
		Use:   "run",
		Short: "Start the desktop shell",
		Long: strings.TrimSpace(`
Start the desktop window with the shell bound to its frontend. The preferences
file is loaded or created first. Closing the window only hides it; stop the
process (Ctrl+C) to quit.

Build with the Wails tags, e.g. go build -tags desktop,production.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e.store.Initialize()

			host, sh, err := e.desktop(wailshost.Options{
				StartHidden: hidden,
				Resident:    true,
			})
			if err != nil {
				return err
			}
			slog.Info("Starting desktop shell", "config", e.cfgPath, "providers", e.cfg.ProviderNames())
			return host.Run(wailshost.NewApp(sh, e.cfg.ProviderNames()))
		},
	}
	c.Flags().BoolVar(&hidden, "hidden", false, "Start with the window hidden")
	return c
}
