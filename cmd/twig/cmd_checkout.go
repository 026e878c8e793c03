package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd(a *app) *cobra.Command {
	var createBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit|tag>",
		Short: "Point HEAD at a branch, or detach it at a commit",
		Long: "Point HEAD at a branch, or detach it at a commit.\n\n" +
			"Only HEAD moves: the staging index and working files are left as they are.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			r, err := a.open()
			if err != nil {
				return err
			}

			if createBranch {
				if _, err := r.CreateBranch(target); err != nil {
					return err
				}
			}

			res, err := r.Checkout(target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Detached:
				fmt.Fprintf(out, "HEAD is now detached at %s\n", res.Hash.Short(8))
			case createBranch:
				fmt.Fprintf(out, "switched to new branch '%s'\n", res.Branch)
			default:
				fmt.Fprintf(out, "switched to branch '%s'\n", res.Branch)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")

	return cmd
}
