package main

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atinyakov/lpbridge/internal/config"
)

// newRootCmd builds the lpbridge command tree over a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "lpbridge",
		Short:         "Manage LastPass accounts through the lpass CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	// withApp loads the configuration before running fn.
	withApp := func(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			options, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := a.setup(options); err != nil {
				return err
			}
			return fn(cmd, args)
		}
	}

	var user string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string) error {
			return a.add(cmd.Context(), args[0], user)
		}),
	}
	addCmd.Flags().StringVarP(&user, "user", "u", "", "user name of the account")

	root.AddCommand(
		&cobra.Command{
			Use:   "ls [filter]",
			Short: "List accounts, optionally only those matching filter",
			Args:  cobra.MaximumNArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string) error {
				var filter string
				if len(args) == 1 {
					filter = args[0]
				}
				return a.list(cmd.Context(), filter)
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print the password of an account",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string) error {
				return a.show(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "set <id>",
			Short: "Replace the password of an account",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string) error {
				return a.setPassword(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete an account",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(cmd *cobra.Command, args []string) error {
				return a.remove(cmd.Context(), args[0])
			}),
		},
		addCmd,
		&cobra.Command{
			Use:   "status",
			Short: "Check that lpass is installed and logged in",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, _ []string) error {
				return a.status(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Run an interactive shell",
			Args:  cobra.NoArgs,
			RunE: withApp(func(cmd *cobra.Command, _ []string) error {
				a.repl(cmd.Context())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show build version and date",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "lpbridge\nVersion: %s\nBuild Date: %s\n",
					cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
			},
		},
	)
	return root
}
