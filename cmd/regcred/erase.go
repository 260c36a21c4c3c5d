//go:build darwin

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eraseCmd = &cobra.Command{
	Use:     "erase <domain>",
	Short:   "Remove the stored credential for a registry",
	Aliases: []string{"rm", "delete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, "cli")
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.helper.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Credential for %q erased\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}
