package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/deskshell/pkg/accounts"
	"github.com/greg-hellings/deskshell/pkg/format"
)

func newAccountsCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "accounts",
		Short: "Manage linked accounts",
	}
	c.AddCommand(newAccountsListCmd(e), newAccountsUnlinkCmd(e))
	return c
}

func newAccountsListCmd(e *env) *cobra.Command {
	var outFormat string
	var noColor bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := accounts.List(e.store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(outFormat) {
			case "table":
				f := format.NewConsoleFormatter()
				f.EnableColors = !noColor
				return f.RenderAccounts(ids, out)
			case "json":
				if ids == nil {
					ids = []accounts.Identity{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ids)
			default:
				return fmt.Errorf("unsupported format: %s", outFormat)
			}
		},
	}
	c.Flags().StringVarP(&outFormat, "format", "f", "table", "Output format: table|json")
	c.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors (table format)")
	return c
}

func newAccountsUnlinkCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <provider>",
		Short: "Remove the account linked for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := accounts.Unlink(e.store, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no %s account is linked", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %s\n", args[0])
			return nil
		},
	}
}
