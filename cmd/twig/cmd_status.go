package main

import (
	"fmt"
	"io"

	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}

			entries, err := r.Status()
			if err != nil {
				return err
			}
			head, err := r.Head()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case head.Detached():
				fmt.Fprintf(out, "HEAD detached at %s\n", head.Hash.Short(8))
			case head.Hash == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", head.Branch)
			default:
				fmt.Fprintf(out, "on %s\n", head.Branch)
			}

			var staged, unstaged, untracked []string
			for _, e := range entries {
				switch e.IndexStatus {
				case repo.StatusNew:
					staged = append(staged, "  + "+e.Path)
				case repo.StatusModified:
					staged = append(staged, "  ~ "+e.Path)
				}
				switch e.WorkStatus {
				case repo.StatusModified:
					unstaged = append(unstaged, "  ~ "+e.Path)
				case repo.StatusDeleted:
					unstaged = append(unstaged, "  - "+e.Path)
				case repo.StatusUntracked:
					untracked = append(untracked, "  "+e.Path)
				}
			}

			printSection(out, "staged:", staged)
			printSection(out, "unstaged:", unstaged)
			printSection(out, "untracked:", untracked)
			return nil
		},
	}
}

func printSection(out io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, title)
	for _, s := range lines {
		fmt.Fprintln(out, s)
	}
}
