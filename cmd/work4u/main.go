package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if msg := exitMessage(err); msg != "" {
			printError(os.Stderr, msg)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &appOptions{}

	rootCmd := &cobra.Command{
		Use:           "work4u",
		Short:         "Sign in to work4u and manage your account from the terminal",
		Long:          "work4u keeps one signed-in session in a local state file and talks to the same identity provider and backend as the web app.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.statePath, "state", defaultStatePath(), "State file holding the session")
	rootCmd.PersistentFlags().StringVar(&opts.lang, "lang", os.Getenv("WORK4U_LANG"), "Message language (en, fr, es)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stdout")

	rootCmd.AddCommand(
		newSignUpCmd(opts),
		newSignInCmd(opts),
		newSignOutCmd(opts),
		newWhoAmICmd(opts),
		newTokenCmd(opts),
		newResetPasswordCmd(opts),
		newProfileCmd(opts),
		newJobsCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
