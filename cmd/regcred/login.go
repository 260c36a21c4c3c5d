//go:build darwin

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/regcred/internal/audit"
	"github.com/benaskins/regcred/internal/config"
	"github.com/benaskins/regcred/internal/credential"
	"github.com/benaskins/regcred/internal/registry"
)

var loginCmd = &cobra.Command{
	Use:   "login <domain>",
	Short: "Verify a credential against a registry, prompting when needed",
	Long: "Use the stored credential for a registry, or prompt for one when none is stored, " +
		"and check it against the registry. A prompted credential is stored only once the registry accepts it.",
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var (
	loginVia       string
	loginPlainHTTP bool
	loginTimeout   time.Duration
	loginTrust     []string
)

func init() {
	loginCmd.Flags().StringVar(&loginVia, "via", "", "Verifier: oras (direct /v2/ ping) or docker (daemon login)")
	loginCmd.Flags().BoolVar(&loginPlainHTTP, "plain-http", false, "Talk to the registry over plain HTTP")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 30*time.Second, "Verification timeout")
	loginCmd.Flags().StringArrayVar(&loginTrust, "trust", nil, "Absolute path of an application allowed silent access (repeatable)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if err := config.CheckTrustedApplications(loginTrust); err != nil {
		return err
	}

	s, err := openSession(cmd, "login")
	if err != nil {
		return err
	}
	defer s.Close()

	via := loginVia
	if via == "" {
		via = s.cfg.Verifier
	}
	verifier, err := registry.New(via, loginPlainHTTP || s.cfg.PlainHTTP)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	domain := args[0]
	prompted := false
	a, err := s.helper.Lookup(domain)
	if errors.Is(err, credential.ErrKeyNotFound) {
		s.logger.Debug("no stored credential, prompting", "domain", domain)
		a, err = s.prompt(domain)
		prompted = true
	}
	if err != nil {
		return err
	}

	err = s.verify(ctx, verifier, domain, a)
	if errors.Is(err, registry.ErrUnauthorized) && !prompted {
		s.logger.Warn("stored credential rejected by registry", "domain", domain)
		if a, err = s.prompt(domain); err != nil {
			return err
		}
		prompted = true
		err = s.verify(ctx, verifier, domain, a)
	}
	if err != nil {
		return err
	}

	if prompted {
		if err := s.save(domain, a, loginTrust); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Login Succeeded")
	return nil
}

func (s *session) verify(ctx context.Context, v registry.Verifier, domain string, a credential.Authentication) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	err := v.Verify(ctx, domain, a)
	s.record(audit.ActionCredentialVerify, domain, err)
	if err != nil {
		s.logger.Debug("verification failed", "domain", domain, "error", err)
	}
	return err
}
