// Package credential resolves, persists and removes registry credentials
// through a keychain.Store, and captures them interactively when nothing is
// stored.
//
// Lookup maps store failures onto ErrKeyNotFound and *QueryError. Save and
// Delete return the store's own errors unchanged.
package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benaskins/regcred/internal/keychain"
)

// Terminal is the controlling terminal of an interactive session.
type Terminal interface {
	// DisableEcho stops the terminal from echoing typed characters.
	DisableEcho() error
	// TryReset restores the state captured before DisableEcho. It is
	// best-effort and never reports failure.
	TryReset()
}

// Helper is a credential facade bound to one namespace id.
//
// A Helper holds no credential data between calls. It is not safe for
// concurrent use because the prompts share one buffered input reader.
type Helper struct {
	id        string
	store     keychain.Store
	in        *bufio.Reader
	out       io.Writer
	terminal  func() (Terminal, error)
	interrupt <-chan os.Signal
	pending   chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// Option configures a Helper.
type Option func(*Helper)

// WithInput sets where prompts read lines from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(h *Helper) {
		h.in = bufio.NewReader(r)
	}
}

// WithOutput sets where prompts are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Helper) {
		h.out = w
	}
}

// WithTerminal sets how the current terminal is acquired for masked input.
func WithTerminal(current func() (Terminal, error)) Option {
	return func(h *Helper) {
		h.terminal = current
	}
}

// WithInterrupt makes prompts return ErrInterrupted when a signal arrives
// on ch while they wait for input. Terminal state is restored first.
func WithInterrupt(ch <-chan os.Signal) Option {
	return func(h *Helper) {
		h.interrupt = ch
	}
}

// New creates a Helper for namespace id backed by store.
func New(id string, store keychain.Store, opts ...Option) *Helper {
	h := &Helper{
		id:    id,
		store: store,
		in:    bufio.NewReader(os.Stdin),
		out:   os.Stdout,
		terminal: func() (Terminal, error) {
			return nil, ErrNoTerminal
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ID returns the namespace the helper reads and writes.
func (h *Helper) ID() string {
	return h.id
}

// Lookup returns the credential stored for domain.
func (h *Helper) Lookup(domain string) (Authentication, error) {
	entry, err := h.store.Get(h.id, domain)
	if err != nil {
		if errors.Is(err, keychain.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, &QueryError{Message: err.Error()}
	}
	if entry == nil {
		return nil, ErrKeyNotFound
	}
	return NewBasicAuthentication(entry.Account, string(entry.Secret)), nil
}

// Delete removes the credential stored for domain. Store errors, including
// a missing entry, are returned as the store reported them.
func (h *Helper) Delete(domain string) error {
	return h.store.Delete(h.id, domain)
}

// Save writes or overwrites the credential for domain. Applications named in
// trustedApplicationPaths may read it without prompting; with none the store
// default applies. Store errors are returned as the store reported them.
func (h *Helper) Save(domain, username, password string, trustedApplicationPaths ...string) error {
	return h.store.Save(h.id, domain, username, []byte(password), trustedApplicationPaths)
}

// CredentialPrompt asks the operator for a username and password for domain.
// The result is not persisted.
func (h *Helper) CredentialPrompt(domain string) (Authentication, error) {
	username, err := h.UserPrompt(domain)
	if err != nil {
		return nil, err
	}
	password, err := h.PasswordPrompt()
	if err != nil {
		return nil, err
	}
	return NewBasicAuthentication(username, password), nil
}

// UserPrompt reads a username for domain with echo on.
func (h *Helper) UserPrompt(domain string) (string, error) {
	fmt.Fprintf(h.out, "Username for %s: ", domain)
	return h.readLine()
}

// PasswordPrompt reads a password with terminal echo disabled. Echo is
// restored however the read ends.
func (h *Helper) PasswordPrompt() (string, error) {
	fmt.Fprint(h.out, "Password: ")

	t, err := h.terminal()
	if err != nil {
		return "", err
	}
	defer t.TryReset()

	if err := t.DisableEcho(); err != nil {
		return "", err
	}

	line, err := h.readLine()
	// The newline typed by the operator was not echoed.
	fmt.Fprintln(h.out)
	return line, err
}

// readLine returns the next input line. With an interrupt channel the read
// runs in the background; a read abandoned by an interrupt is handed to the
// next caller so the reader is never used by two goroutines.
func (h *Helper) readLine() (string, error) {
	if h.interrupt == nil {
		return h.readLineNow()
	}
	if h.pending == nil {
		h.pending = make(chan lineResult, 1)
		go func(ch chan<- lineResult) {
			line, err := h.readLineNow()
			ch <- lineResult{line: line, err: err}
		}(h.pending)
	}
	select {
	case r := <-h.pending:
		h.pending = nil
		return r.line, r.err
	case sig := <-h.interrupt:
		return "", fmt.Errorf("%w: %v", ErrInterrupted, sig)
	}
}

func (h *Helper) readLineNow() (string, error) {
	line, err := h.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
