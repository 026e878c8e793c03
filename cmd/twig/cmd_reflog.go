package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReflogCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show how a ref has moved, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}

			r, err := a.open()
			if err != nil {
				return err
			}
			entries, err := r.ReadReflog(ref, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				ts := time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(out, "%s %s -> %s %s\n", ts, e.OldHash.Short(8), e.NewHash.Short(8), e.Reason)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 20, "maximum number of entries (0 for all)")

	return cmd
}
