package keychain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/benaskins/regcred/internal/audit"
)

// EntryMetadata tracks bookkeeping for a stored credential. It never holds
// the account or secret.
type EntryMetadata struct {
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
	TrustedApplications []string  `json:"trusted_applications,omitempty"`
}

// metadataLockTimeout bounds how long Set and Delete wait for another
// process holding the metadata file.
const metadataLockTimeout = 10 * time.Second

// MetadataStore persists entry metadata to a JSON file. Set and Delete
// re-read the file under a cross-process lock before writing, so
// concurrent regcred processes merge rather than overwrite each other.
type MetadataStore struct {
	mu       sync.RWMutex
	path     string
	lock     *flock.Flock
	metadata map[string]*EntryMetadata
}

// NewMetadataStore loads or creates a metadata file.
func NewMetadataStore(path string) (*MetadataStore, error) {
	ms := &MetadataStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
	ms.metadata = ms.load()
	return ms, nil
}

// load reads the file from disk. A missing, empty, null or corrupt file
// yields an empty map.
func (ms *MetadataStore) load() map[string]*EntryMetadata {
	metadata := make(map[string]*EntryMetadata)
	data, err := os.ReadFile(ms.path)
	if err != nil {
		return metadata
	}
	if len(data) == 0 {
		return metadata
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		slog.Warn("corrupt metadata file, starting fresh", "path", ms.path, "error", err)
		return make(map[string]*EntryMetadata)
	}
	if metadata == nil {
		metadata = make(map[string]*EntryMetadata)
	}
	return metadata
}

// Get returns a copy of the metadata for an entry, or nil if not tracked.
func (ms *MetadataStore) Get(id, host string) *EntryMetadata {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.metadata[entryKey(id, host)]
	if !ok || m == nil {
		return nil
	}
	cp := *m
	cp.TrustedApplications = slices.Clone(m.TrustedApplications)
	return &cp
}

// Set records metadata for an entry and persists to disk.
func (ms *MetadataStore) Set(id, host string, meta *EntryMetadata) error {
	return ms.update(func(metadata map[string]*EntryMetadata) {
		metadata[entryKey(id, host)] = meta
	})
}

// Touch marks an entry as written at now, keeping its creation time when
// the entry was already tracked.
func (ms *MetadataStore) Touch(id, host string, trusted []string, now time.Time) error {
	return ms.update(func(metadata map[string]*EntryMetadata) {
		key := entryKey(id, host)
		meta := &EntryMetadata{CreatedAt: now}
		if prev := metadata[key]; prev != nil {
			meta.CreatedAt = prev.CreatedAt
		}
		meta.UpdatedAt = now
		meta.TrustedApplications = slices.Clone(trusted)
		metadata[key] = meta
	})
}

// Delete removes metadata for an entry.
func (ms *MetadataStore) Delete(id, host string) error {
	return ms.update(func(metadata map[string]*EntryMetadata) {
		delete(metadata, entryKey(id, host))
	})
}

// update applies mutate to the current on-disk state and writes it back,
// holding the file lock across the read and the write.
func (ms *MetadataStore) update(mutate func(map[string]*EntryMetadata)) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), metadataLockTimeout)
	defer cancel()

	locked, err := ms.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking metadata file: %w", err)
	}
	if !locked {
		return fmt.Errorf("locking metadata file: timeout")
	}
	defer ms.lock.Unlock()

	metadata := ms.load()
	mutate(metadata)

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := ms.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, ms.path); err != nil {
		return err
	}
	ms.metadata = metadata
	return nil
}

// AuditedStore wraps a Store and adds audit logging and metadata tracking.
// Errors from the inner store are returned unmodified.
type AuditedStore struct {
	inner    Store
	audit    *audit.Logger
	metadata *MetadataStore
	actor    string // "cli" or "login"
}

// NewAuditedStore wraps an existing store with audit logging.
func NewAuditedStore(inner Store, auditLog *audit.Logger, metadata *MetadataStore, actor string) *AuditedStore {
	return &AuditedStore{
		inner:    inner,
		audit:    auditLog,
		metadata: metadata,
		actor:    actor,
	}
}

func (s *AuditedStore) log(action audit.Action, id, host string, err error, mutate func(*audit.Entry)) {
	e := audit.Entry{
		Action:    action,
		Namespace: id,
		Domain:    host,
		Actor:     s.actor,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if mutate != nil {
		mutate(&e)
	}
	// Audit logging is best-effort; a failed write never blocks the operation.
	if logErr := s.audit.Log(e); logErr != nil {
		slog.Debug("audit log write failed", "path", s.audit.Path(), "error", logErr)
	}
}

func (s *AuditedStore) Save(id, host, user string, secret []byte, trustedPaths []string) error {
	if err := s.inner.Save(id, host, user, secret, trustedPaths); err != nil {
		s.log(audit.ActionCredentialWrite, id, host, err, nil)
		return err
	}

	s.log(audit.ActionCredentialWrite, id, host, nil, func(e *audit.Entry) {
		e.Account = user
		e.Trusted = trustedPaths
	})

	if err := s.metadata.Touch(id, host, trustedPaths, time.Now().UTC()); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}

	return nil
}

func (s *AuditedStore) Get(id, host string) (*Entry, error) {
	entry, err := s.inner.Get(id, host)
	if err != nil {
		s.log(audit.ActionCredentialRead, id, host, err, nil)
		return nil, err
	}

	s.log(audit.ActionCredentialRead, id, host, nil, func(e *audit.Entry) {
		e.Account = entry.Account
	})

	return entry, nil
}

func (s *AuditedStore) List(id string) ([]string, error) {
	return s.inner.List(id)
}

func (s *AuditedStore) Delete(id, host string) error {
	if err := s.inner.Delete(id, host); err != nil {
		s.log(audit.ActionCredentialDelete, id, host, err, nil)
		return err
	}

	s.log(audit.ActionCredentialDelete, id, host, nil, nil)

	if err := s.metadata.Delete(id, host); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	return nil
}

// Metadata returns the metadata store for direct access.
func (s *AuditedStore) Metadata() *MetadataStore {
	return s.metadata
}

