//go:build darwin

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/regcred/internal/config"
	"github.com/benaskins/regcred/internal/credential"
)

var storeCmd = &cobra.Command{
	Use:   "store <domain>",
	Short: "Prompt for a credential and store it in the Keychain",
	Long: "Prompt for a username and password and store them for a registry. " +
		"Applications passed with --trust (and trusted_applications from the config) " +
		"may read the credential without a Keychain prompt.",
	Args: cobra.ExactArgs(1),
	RunE: runStore,
}

var (
	storeUsername string
	storeTrust    []string
)

func init() {
	storeCmd.Flags().StringVarP(&storeUsername, "username", "u", "", "Username (prompted when omitted)")
	storeCmd.Flags().StringArrayVar(&storeTrust, "trust", nil, "Absolute path of an application allowed silent access (repeatable)")
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	if err := config.CheckTrustedApplications(storeTrust); err != nil {
		return err
	}

	s, err := openSession(cmd, "cli")
	if err != nil {
		return err
	}
	defer s.Close()

	domain := args[0]
	var a credential.Authentication
	if storeUsername != "" {
		a, err = s.promptPassword(domain, storeUsername)
	} else {
		a, err = s.prompt(domain)
	}
	if err != nil {
		return err
	}

	if err := s.save(domain, a, storeTrust); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Credential for %q stored\n", domain)
	return nil
}
