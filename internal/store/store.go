// Package store persists login credentials encrypted at rest.
//
// Credentials are sealed with nacl/secretbox under a random key kept in a
// 0600 file next to the credentials file. This is machine-local protection,
// not a vault: losing or deleting the key file simply forces a fresh login.
package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrNoCredentials is returned when no credentials have been saved.
var ErrNoCredentials = errors.New("store: no saved credentials")

const (
	credentialsFile = "credentials.dat"
	keyFile         = "credentials.key"
)

// Credentials is a username/password pair. Ephemeral; callers own it for
// the duration of one login attempt.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store reads and writes credentials under one directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the default store location.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bbsync"
	}
	return filepath.Join(dir, "bbsync")
}

// SaveCredentials encrypts and writes the credentials.
func (s *Store) SaveCredentials(c Credentials) error {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}

	plain, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal credentials: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("store: generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plain, &nonce, key)
	if err := os.WriteFile(filepath.Join(s.dir, credentialsFile), sealed, 0o600); err != nil {
		return fmt.Errorf("store: write credentials: %w", err)
	}
	return nil
}

// LoadCredentials reads and decrypts the saved credentials. Returns
// ErrNoCredentials when none are stored; a corrupt or foreign-key file is
// reported as an error, and the caller should fall back to interactive
// login.
func (s *Store) LoadCredentials() (Credentials, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, credentialsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("store: read credentials: %w", err)
	}
	if len(sealed) < 24 {
		return Credentials{}, errors.New("store: credentials file truncated")
	}

	key, err := s.loadKey()
	if err != nil {
		return Credentials{}, err
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, key)
	if !ok {
		return Credentials{}, errors.New("store: credentials cannot be decrypted")
	}

	var c Credentials
	if err := json.Unmarshal(plain, &c); err != nil {
		return Credentials{}, fmt.Errorf("store: unmarshal credentials: %w", err)
	}
	return c, nil
}

// ClearCredentials removes the saved credentials, if any.
func (s *Store) ClearCredentials() error {
	err := os.Remove(filepath.Join(s.dir, credentialsFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: clear credentials: %w", err)
	}
	return nil
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFile)
}

func (s *Store) loadKey() (*[32]byte, error) {
	data, err := os.ReadFile(s.keyPath())
	if err != nil {
		return nil, fmt.Errorf("store: read key: %w", err)
	}
	if len(data) != 32 {
		return nil, errors.New("store: key file corrupt")
	}
	var key [32]byte
	copy(key[:], data)
	return &key, nil
}

func (s *Store) loadOrCreateKey() (*[32]byte, error) {
	if key, err := s.loadKey(); err == nil {
		return key, nil
	}

	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("store: generate key: %w", err)
	}
	if err := os.WriteFile(s.keyPath(), key[:], 0o600); err != nil {
		return nil, fmt.Errorf("store: write key: %w", err)
	}
	return &key, nil
}
