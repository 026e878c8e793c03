package main

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			results, err := r.Stage(args...)
			out := cmd.OutOrStdout()
			for _, res := range results {
				switch res.Outcome {
				case repo.StageUnchanged:
					fmt.Fprintf(out, "unchanged %s\n", res.Path)
				default:
					fmt.Fprintf(out, "%s %s %s\n", res.Outcome, res.Hash.Short(8), res.Path)
				}
			}
			return err
		},
	}
}
