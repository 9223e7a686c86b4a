package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/deskshell/pkg/format"
	"github.com/greg-hellings/deskshell/pkg/prefs"
)

func newPrefsCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "prefs",
		Short: "Read and replace the stored preferences",
	}
	c.AddCommand(newPrefsGetCmd(e), newPrefsSetCmd(e), newPrefsPathCmd(e))
	return c
}

func newPrefsGetCmd(e *env) *cobra.Command {
	var outFormat string
	var noColor bool
	c := &cobra.Command{
		Use:   "get",
		Short: "Print the preferences",
		Long: strings.TrimSpace(`
Print the stored preferences. A missing preferences file is created with an
empty object first.

Formats:
  json (default), yaml, toml - the preferences value itself
  table                      - one row per leaf, keyed by path
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := e.store.GetPreferences()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if strings.EqualFold(outFormat, "table") {
				f := format.NewConsoleFormatter()
				f.EnableColors = !noColor
				return f.RenderPreferences(v, out)
			}
			fm, err := prefs.ParseFormat(outFormat)
			if err != nil {
				return err
			}
			return prefs.Encode(out, v, fm)
		},
	}
	c.Flags().StringVarP(&outFormat, "format", "f", "json", "Output format: json|yaml|toml|table")
	c.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors (table format)")
	return c
}

func newPrefsSetCmd(e *env) *cobra.Command {
	var inFormat string
	c := &cobra.Command{
		Use:   "set <file|->",
		Short: "Replace the preferences with the contents of a file",
		Long: strings.TrimSpace(`
Replace the stored preferences wholesale. Use - to read from stdin.

A missing or unreadable preferences file is recreated. A preferences file that
exists but does not parse is left untouched and the command fails, so it can
be inspected or repaired by hand.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := prefs.ParseFormat(inFormat)
			if err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				r = f
			}
			v, err := prefs.Decode(r, fm)
			if err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}
			return e.store.SetPreferences(v)
		},
	}
	c.Flags().StringVarP(&inFormat, "format", "f", "json", "Input format: json|yaml|toml")
	return c
}

func newPrefsPathCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the preferences file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.store.Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
