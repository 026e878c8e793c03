package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd(a *app) *cobra.Command {
	var oneline bool
	var limit int
	var verify bool

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			start, err := r.Resolve(rev)
			if err != nil {
				if errors.Is(err, repo.ErrNoCommitsYet) {
					fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
					return nil
				}
				return err
			}

			decorations, err := refDecorations(r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			walker := r.History(start)
			shown := 0
			for h, c := range walker.All() {
				if limit > 0 && shown >= limit {
					break
				}
				shown++
				decoration := decorations[h]

				if oneline {
					if decoration != "" {
						fmt.Fprintf(out, "%s %s %s\n", h.Short(8), decoration, firstLine(c.Message))
					} else {
						fmt.Fprintf(out, "%s %s\n", h.Short(8), firstLine(c.Message))
					}
					continue
				}

				if decoration != "" {
					fmt.Fprintf(out, "commit %s %s\n", h, decoration)
				} else {
					fmt.Fprintf(out, "commit %s\n", h)
				}
				if verify {
					fmt.Fprintf(out, "Signature: %s\n", describeCommitSignature(c))
				}
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n", c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
				fmt.Fprintln(out)
				writeIndented(out, c.Message)
				fmt.Fprintln(out)
			}
			return walker.Err()
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "show each commit on a single line")
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown (0 = all)")
	cmd.Flags().BoolVar(&verify, "verify", false, "check commit signatures")

	return cmd
}

// refDecorations maps commit hashes to "(HEAD -> main, tag: v1)" style labels.
func refDecorations(r *repo.Repo) (map[object.Hash]string, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	labels := make(map[object.Hash][]string)
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h := refs[name]
		switch {
		case strings.HasPrefix(name, "heads/"):
			branch := strings.TrimPrefix(name, "heads/")
			if !head.Detached() && branch == head.Branch {
				labels[h] = append([]string{"HEAD -> " + branch}, labels[h]...)
			} else {
				labels[h] = append(labels[h], branch)
			}
		case strings.HasPrefix(name, "tags/"):
			labels[h] = append(labels[h], "tag: "+strings.TrimPrefix(name, "tags/"))
		}
	}
	if head.Detached() {
		labels[head.Hash] = append([]string{"HEAD"}, labels[head.Hash]...)
	}

	out := make(map[object.Hash]string, len(labels))
	for h, l := range labels {
		out[h] = "(" + strings.Join(l, ", ") + ")"
	}
	return out, nil
}

func writeIndented(w io.Writer, message string) {
	for _, line := range strings.Split(strings.TrimRight(message, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
}
