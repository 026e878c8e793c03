package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const version = "0.1.0-dev"

// app carries state shared by every subcommand for one invocation.
type app struct {
	verbose bool
	logger  *slog.Logger
	closer  io.Closer
}

// open finds the repository containing the working directory.
func (a *app) open() (*repo.Repo, error) {
	return repo.Open(".", repo.WithLogger(a.logger))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:           "twig",
		Short:         "A minimal content-addressed version control system",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := newLogger(cmd.ErrOrStderr(), a.verbose)
			if err != nil {
				return err
			}
			a.logger, a.closer = logger, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) (retErr error) {
			if a.closer != nil {
				retErr = multierr.Append(retErr, a.closer.Close())
			}
			return retErr
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug details to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newCommitCmd(a))
	root.AddCommand(newLogCmd(a))
	root.AddCommand(newBranchCmd(a))
	root.AddCommand(newTagCmd(a))
	root.AddCommand(newCheckoutCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newDiffCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newRemoteCmd(a))
	root.AddCommand(newReflogCmd(a))
	root.AddCommand(newCatFileCmd(a))
	root.AddCommand(newFsckCmd(a))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "twig", version)
		},
	}
}

// notice reports "nothing to do" outcomes on stdout and swallows them so the
// command exits 0.
func notice(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, repo.ErrAlreadyInitialized):
		fmt.Fprintln(cmd.OutOrStdout(), "repository already initialized, nothing to do")
		return nil
	case errors.Is(err, repo.ErrEmptyStagingArea):
		fmt.Fprintln(cmd.OutOrStdout(), "nothing staged, nothing to commit")
		return nil
	}
	return err
}
