//go:build darwin

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benaskins/regcred/internal/audit"
	"github.com/benaskins/regcred/internal/config"
	"github.com/benaskins/regcred/internal/credential"
	"github.com/benaskins/regcred/internal/keychain"
	"github.com/benaskins/regcred/internal/tty"
)

// session bundles everything one command invocation needs.
type session struct {
	cfg    *config.Config
	audit  *audit.Logger
	store  *keychain.AuditedStore
	helper *credential.Helper
	actor  string
	logger *slog.Logger
	sigs   chan os.Signal
}

func openSession(cmd *cobra.Command, actor string) (*session, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if backend != "" {
		cfg.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	for _, p := range []string{cfg.AuditLog, cfg.MetadataFile} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	auditLog, err := audit.NewLogger(cfg.AuditLog)
	if err != nil {
		return nil, err
	}
	meta, err := keychain.NewMetadataStore(cfg.MetadataFile)
	if err != nil {
		auditLog.Close()
		return nil, err
	}

	store := keychain.NewAuditedStore(openBackend(cfg.Backend), auditLog, meta, actor)
	sigs := make(chan os.Signal, 1)
	helper := credential.New(cfg.Namespace, store,
		credential.WithInput(cmd.InOrStdin()),
		credential.WithOutput(cmd.OutOrStdout()),
		credential.WithTerminal(currentTerminal),
		credential.WithInterrupt(sigs),
	)

	logger := slog.With("component", "cli", "namespace", cfg.Namespace, "backend", cfg.Backend)
	logger.Debug("session opened", "config", resolvedConfigPath(), "audit_log", cfg.AuditLog)

	return &session{
		cfg:    cfg,
		audit:  auditLog,
		store:  store,
		helper: helper,
		actor:  actor,
		logger: logger,
		sigs:   sigs,
	}, nil
}

func openBackend(name string) keychain.Store {
	if name == config.BackendKeyring {
		return keychain.NewKeyringStore()
	}
	return keychain.NewSystemStore()
}

func currentTerminal() (credential.Terminal, error) {
	t, err := tty.Current()
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *session) Close() {
	s.audit.Close()
}

func (s *session) record(action audit.Action, domain string, err error) {
	e := audit.Entry{
		Action:    action,
		Namespace: s.cfg.Namespace,
		Domain:    domain,
		Actor:     s.actor,
	}
	if err != nil {
		e.Error = err.Error()
	}
	// Audit logging is best-effort; a failed write never blocks the operation.
	if logErr := s.audit.Log(e); logErr != nil {
		s.logger.Debug("audit log write failed", "error", logErr)
	}
}

// interruptible routes SIGINT and SIGTERM to the helper's prompts while fn
// runs, so an interrupted prompt returns after restoring the terminal.
func (s *session) interruptible(fn func() error) error {
	signal.Notify(s.sigs, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(s.sigs)
		select {
		case <-s.sigs:
		default:
		}
	}()
	return fn()
}

// prompt asks the operator for a credential and records that it happened.
func (s *session) prompt(domain string) (credential.Authentication, error) {
	var a credential.Authentication
	err := s.interruptible(func() error {
		var err error
		a, err = s.helper.CredentialPrompt(domain)
		return err
	})
	s.record(audit.ActionCredentialPrompt, domain, err)
	return a, err
}

// promptPassword asks only for the password of a known username.
func (s *session) promptPassword(domain, username string) (credential.Authentication, error) {
	var password string
	err := s.interruptible(func() error {
		var err error
		password, err = s.helper.PasswordPrompt()
		return err
	})
	s.record(audit.ActionCredentialPrompt, domain, err)
	if err != nil {
		return nil, err
	}
	return credential.NewBasicAuthentication(username, password), nil
}

// save persists a with the configured trusted applications plus extra.
func (s *session) save(domain string, a credential.Authentication, extra []string) error {
	trusted := append(append([]string(nil), s.cfg.TrustedApplications...), extra...)
	cred := a.Credential()
	if err := s.helper.Save(domain, cred.Username, cred.Password, trusted...); err != nil {
		return fmt.Errorf("saving credential for %s: %w", domain, err)
	}
	s.logger.Info("credential saved", "domain", domain, "trusted", len(trusted))
	return nil
}
