package main

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/spf13/cobra"
)

func newBranchCmd(a *app) *cobra.Command {
	var deleteBranch string

	cmd := &cobra.Command{
		Use:   "branch [name [start]]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteBranch != "" {
				if len(args) > 0 {
					return fmt.Errorf("branch --delete does not accept positional args")
				}
				if err := r.DeleteBranch(deleteBranch); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted branch '%s'\n", deleteBranch)
				return nil
			}

			if len(args) > 0 {
				var tip object.Hash
				if len(args) == 2 {
					tip, err = r.CreateBranchAt(args[0], args[1])
				} else {
					tip, err = r.CreateBranch(args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "created branch '%s' at %s\n", args[0], tip.Short(8))
				return nil
			}

			branches, err := r.ListBranches()
			if err != nil {
				return err
			}
			current, onBranch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			for _, b := range branches {
				if onBranch && b == current {
					fmt.Fprintf(out, "* %s\n", b)
				} else {
					fmt.Fprintf(out, "  %s\n", b)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteBranch, "delete", "d", "", "delete the named branch")

	return cmd
}
