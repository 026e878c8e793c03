package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFsckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Verify every object reachable from branches, tags and HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			problems, err := r.Verify()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "ok")
				return nil
			}
			for _, p := range problems {
				fmt.Fprintln(out, p)
			}
			return fmt.Errorf("fsck: %d problem(s) found", len(problems))
		},
	}
}
