// Package credential keeps mailbox secrets in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "getstatements"

// ErrNotFound is returned when no secret is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets by key.
type Store struct {
	open func() (keyring.Keyring, error)
}

// NewStore uses the platform keyring with an encrypted file fallback.
func NewStore() *Store {
	return &Store{open: openKeyring}
}

// NewStoreWith wraps an already opened keyring.
func NewStoreWith(ring keyring.Keyring) *Store {
	return &Store{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/getstatements/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("getstatements-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// IMAPKey is the keyring key for an IMAP account password.
func IMAPKey(username string) string {
	return "imap:" + username
}

func (s *Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) Set(key, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "getstatements " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
