//go:build darwin

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List registries with stored credentials",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, "cli")
		if err != nil {
			return err
		}
		defer s.Close()

		hosts, err := s.store.List(s.cfg.Namespace)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(hosts) == 0 {
			fmt.Fprintf(out, "No credentials stored in %s\n", s.cfg.Namespace)
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tUPDATED\tTRUSTED")
		for _, h := range hosts {
			updated, trusted := "-", "-"
			if meta := s.store.Metadata().Get(s.cfg.Namespace, h); meta != nil {
				if !meta.UpdatedAt.IsZero() {
					updated = meta.UpdatedAt.Local().Format(time.DateTime)
				}
				if len(meta.TrustedApplications) > 0 {
					trusted = strings.Join(meta.TrustedApplications, ",")
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", h, updated, trusted)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
