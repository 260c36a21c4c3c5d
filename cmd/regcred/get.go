//go:build darwin

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/regcred/internal/credential"
)

var getCmd = &cobra.Command{
	Use:   "get <domain>",
	Short: "Look up the stored credential for a registry",
	Long:  "Print the username stored for a registry. With --prompt, ask for a credential when none is stored.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var (
	getShowPassword bool
	getEncode       bool
	getPrompt       bool
	getSave         bool
)

func init() {
	getCmd.Flags().BoolVar(&getShowPassword, "show-password", false, "Also print the password")
	getCmd.Flags().BoolVar(&getEncode, "encode", false, "Print the X-Registry-Auth header value instead")
	getCmd.Flags().BoolVar(&getPrompt, "prompt", false, "Prompt for a credential when none is stored")
	getCmd.Flags().BoolVar(&getSave, "save", false, "Store a prompted credential (requires --prompt)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	if getSave && !getPrompt {
		return errors.New("--save requires --prompt")
	}

	s, err := openSession(cmd, "cli")
	if err != nil {
		return err
	}
	defer s.Close()

	domain := args[0]
	a, err := s.helper.Lookup(domain)
	if errors.Is(err, credential.ErrKeyNotFound) && getPrompt {
		s.logger.Debug("no stored credential, prompting", "domain", domain)
		a, err = s.prompt(domain)
		if err == nil && getSave {
			err = s.save(domain, a, nil)
		}
	}
	if err != nil {
		if errors.Is(err, credential.ErrKeyNotFound) {
			return fmt.Errorf("no credential stored for %s in %s", domain, s.helper.ID())
		}
		return err
	}

	out := cmd.OutOrStdout()
	if getEncode {
		encoded, err := credential.EncodeAuth(a, domain)
		if err != nil {
			return fmt.Errorf("encoding credential: %w", err)
		}
		fmt.Fprintln(out, encoded)
		return nil
	}

	cred := a.Credential()
	fmt.Fprintln(out, cred.Username)
	if getShowPassword {
		fmt.Fprintln(out, cred.Password)
	}
	return nil
}
