// Package keychain provides registry credential storage backed by macOS Keychain.
//
// Credentials are stored as generic passwords with:
//   - Service: the helper namespace (e.g. "com.regcred")
//   - Account: the registry domain (e.g. "ghcr.io")
//   - Description: the registry username
//   - Label: "<namespace>: <domain>" (for Keychain Access.app visibility)
//
// Items are scoped with kSecAttrAccessibleWhenUnlockedThisDeviceOnly:
// never synced to iCloud, never available when the machine is locked.
package keychain

import "errors"

// ErrNotFound is returned when no entry exists for a namespace and host.
var ErrNotFound = errors.New("entry not found")

// Entry is a stored account and secret pair.
type Entry struct {
	Account string
	Secret  []byte
}

// Store is the interface for credential storage operations.
//
// Entries are addressed by (id, host). Get and Delete wrap ErrNotFound when
// the entry is absent; every other failure is a store error.
type Store interface {
	Get(id, host string) (*Entry, error)
	Save(id, host, user string, secret []byte, trustedPaths []string) error
	Delete(id, host string) error
	List(id string) ([]string, error)
}

func entryKey(id, host string) string {
	return id + "/" + host
}
