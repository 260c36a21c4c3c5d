//go:build darwin

package keychain

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringStore stores credentials through the 99designs keyring abstraction,
// restricted to its Keychain backend. The keyring library can only grant
// silent access to the calling binary, so any non-empty trusted path list
// turns on KeychainTrustApplication instead of naming the paths.
type KeyringStore struct {
	open func(keyring.Config) (keyring.Keyring, error)
}

// NewKeyringStore creates a keyring-backed credential store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{open: keyring.Open}
}

func (s *KeyringStore) ring(id string, trusted bool) (keyring.Keyring, error) {
	r, err := s.open(keyring.Config{
		ServiceName:                    id,
		AllowedBackends:                []keyring.BackendType{keyring.KeychainBackend},
		KeychainTrustApplication:       trusted,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return r, nil
}

func (s *KeyringStore) Get(id, host string) (*Entry, error) {
	r, err := s.ring(id, false)
	if err != nil {
		return nil, err
	}
	item, err := r.Get(host)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
		}
		return nil, fmt.Errorf("keyring get failed: %w", err)
	}
	return &Entry{Account: item.Description, Secret: item.Data}, nil
}

func (s *KeyringStore) Save(id, host, user string, secret []byte, trustedPaths []string) error {
	r, err := s.ring(id, len(trustedPaths) > 0)
	if err != nil {
		return err
	}
	if err := r.Set(keyring.Item{
		Key:         host,
		Data:        secret,
		Label:       label(id, host),
		Description: user,
	}); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

func (s *KeyringStore) Delete(id, host string) error {
	r, err := s.ring(id, false)
	if err != nil {
		return err
	}
	if err := r.Remove(host); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

func (s *KeyringStore) List(id string) ([]string, error) {
	r, err := s.ring(id, false)
	if err != nil {
		return nil, err
	}
	keys, err := r.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	return keys, nil
}
