package main

import (
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd(a *app) *cobra.Command {
	var message string
	var author string
	var sign bool
	var signKey string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged snapshot on the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := a.open()
			if err != nil {
				return err
			}

			var id repo.Identity
			if strings.TrimSpace(author) != "" {
				id, err = parseIdentity(author)
				if err != nil {
					return err
				}
			}

			var signer repo.CommitSigner
			if sign || signKey != "" {
				s, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				a.logger.Debug("signing commit", "key", keyPath)
				signer = s
			}

			h, err := r.CommitWithSigner(message, id, signer)
			if err != nil {
				return notice(cmd, err)
			}

			branch, _, _ := r.CurrentBranch()
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, h.Short(8), firstLine(message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", `override author ("Name <email>")`)
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with the default SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "sign the commit with this SSH private key")

	return cmd
}

// parseIdentity parses "Name <email>".
func parseIdentity(s string) (repo.Identity, error) {
	s = strings.TrimSpace(s)
	lt := strings.LastIndexByte(s, '<')
	if lt < 0 || !strings.HasSuffix(s, ">") {
		return repo.Identity{}, fmt.Errorf("invalid author %q: want \"Name <email>\"", s)
	}
	id := repo.Identity{
		Name:  strings.TrimSpace(s[:lt]),
		Email: strings.TrimSpace(s[lt+1 : len(s)-1]),
	}
	if id.Name == "" || id.Email == "" {
		return repo.Identity{}, fmt.Errorf("invalid author %q: want \"Name <email>\"", s)
	}
	if err := id.Validate(); err != nil {
		return repo.Identity{}, err
	}
	return id, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
