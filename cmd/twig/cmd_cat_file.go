package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatFileCmd(a *app) *cobra.Command {
	var typeOnly bool

	cmd := &cobra.Command{
		Use:   "cat-file <revision>",
		Short: "Print an object's type or raw content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.open()
			if err != nil {
				return err
			}
			h, err := r.Resolve(args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if typeOnly {
				fmt.Fprintln(out, objType)
				return nil
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
			if len(data) > 0 && data[len(data)-1] != '\n' {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&typeOnly, "type", "t", false, "print only the object type")

	return cmd
}
