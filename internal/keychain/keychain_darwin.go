//go:build darwin

package keychain

import (
	"errors"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"
)

// SystemStore provides credential operations against the macOS Keychain.
type SystemStore struct{}

// NewSystemStore creates a new Keychain-backed credential store.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

func label(id, host string) string {
	return fmt.Sprintf("%s: %s", id, host)
}

// Save stores a credential in the Keychain. Overwrites if it already exists.
func (s *SystemStore) Save(id, host, user string, secret []byte, trustedPaths []string) error {
	// Try to delete existing item first (update = delete + add)
	_ = s.Delete(id, host)

	item := gokeychain.NewGenericPassword(id, host, label(id, host), secret, "")
	item.SetDescription(user)
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)
	if len(trustedPaths) > 0 {
		item.SetAccess(&gokeychain.Access{
			Label:               label(id, host),
			TrustedApplications: trustedPaths,
		})
	}

	if err := gokeychain.AddItem(item); err != nil {
		return fmt.Errorf("keychain add %q: %w", entryKey(id, host), err)
	}
	return nil
}

// Get retrieves a credential from the Keychain.
func (s *SystemStore) Get(id, host string) (*Entry, error) {
	query := gokeychain.NewItem()
	query.SetSecClass(gokeychain.SecClassGenericPassword)
	query.SetService(id)
	query.SetAccount(host)
	query.SetMatchLimit(gokeychain.MatchLimitOne)
	query.SetReturnAttributes(true)
	query.SetReturnData(true)

	results, err := gokeychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
		}
		return nil, fmt.Errorf("keychain get %q: %w", entryKey(id, host), err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
	}
	return &Entry{Account: results[0].Description, Secret: results[0].Data}, nil
}

// List returns every host with a credential under id.
func (s *SystemStore) List(id string) ([]string, error) {
	hosts, err := gokeychain.GetGenericPasswordAccounts(id)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain list: %w", err)
	}
	return hosts, nil
}

// Delete removes a credential from the Keychain.
func (s *SystemStore) Delete(id, host string) error {
	err := gokeychain.DeleteGenericPasswordItem(id, host)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, entryKey(id, host))
		}
		return fmt.Errorf("keychain delete %q: %w", entryKey(id, host), err)
	}
	return nil
}
