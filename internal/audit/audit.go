// Package audit provides append-only structured logging for credential operations.
//
// Every credential access (read, write, delete, prompt, verify) is recorded
// as newline-delimited JSON. Secrets are never written to the log.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Action describes what happened.
type Action string

const (
	ActionCredentialRead   Action = "credential_read"
	ActionCredentialWrite  Action = "credential_write"
	ActionCredentialDelete Action = "credential_delete"
	ActionCredentialPrompt Action = "credential_prompt"
	ActionCredentialVerify Action = "credential_verify"
)

// Entry is a single audit log record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Action    Action    `json:"action"`
	Namespace string    `json:"namespace"`
	Domain    string    `json:"domain"`
	Account   string    `json:"account,omitempty"`
	Actor     string    `json:"actor,omitempty"`   // "cli", "login"
	Trusted   []string  `json:"trusted,omitempty"` // trusted application paths on write
	Error     string    `json:"error,omitempty"`
}

// Logger writes audit entries to an append-only file.
// Writers in other processes are serialized through a lock file next to it.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	lock *flock.Flock
	path string
}

// NewLogger creates or opens an audit log file for appending.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &Logger{file: f, lock: flock.New(path + ".lock"), path: path}, nil
}

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("locking audit log: %w", err)
	}
	defer l.lock.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Path returns the audit log location.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	return l.file.Close()
}
