package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/spf13/cobra"
)

func newTagCmd(a *app) *cobra.Command {
	var deleteTag string
	var showHash bool

	cmd := &cobra.Command{
		Use:   "tag [name [target]]",
		Short: "List, create, or delete lightweight tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				if err := r.DeleteTag(deleteTag); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted tag '%s'\n", deleteTag)
				return nil
			}

			if len(args) == 0 {
				tags, err := r.ListTagsWithHashes()
				if err != nil {
					return err
				}
				names := make([]string, 0, len(tags))
				for name := range tags {
					names = append(names, name)
				}
				sort.Strings(names)

				for _, name := range names {
					if showHash {
						fmt.Fprintf(out, "%s %s\n", tags[name], name)
					} else {
						fmt.Fprintln(out, name)
					}
				}
				return nil
			}

			var target object.Hash
			if len(args) == 2 {
				target, err = r.CreateTagAt(args[0], args[1])
			} else {
				target, err = r.CreateTag(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tagged %s as '%s'\n", target.Short(8), args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVar(&showHash, "show-hash", false, "show tag target hashes when listing")

	return cmd
}
