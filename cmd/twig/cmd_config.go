package main

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/repo"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write repository configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <section.key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, key, err := repo.SplitConfigKey(args[0])
			if err != nil {
				return err
			}
			r, err := a.open()
			if err != nil {
				return err
			}
			cfg, err := r.ReadConfig()
			if err != nil {
				return err
			}
			v, ok := cfg.Lookup(section, key)
			if !ok {
				return fmt.Errorf("%s.%s is not set", section, key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Store a configuration value (user.name, user.email)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, key, err := repo.SplitConfigKey(args[0])
			if err != nil {
				return err
			}
			r, err := a.open()
			if err != nil {
				return err
			}
			return r.SetConfig(section, key, args[1])
		},
	})

	return cmd
}
