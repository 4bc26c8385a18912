package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "clinic-intray"

// Item keys, mirroring the keys the web console keeps in local storage.
const (
	keyToken    = "token"
	keyUserID   = "userId"
	keyRole     = "user"
	keyUsername = "username"
)

// OpenKeyring opens the system keyring, falling back to an encrypted file
// under stateDir when no system backend is available. The file backend is
// only as strong as its password: filePassword when set, otherwise the user
// is asked for one on the terminal.
func OpenKeyring(stateDir, filePassword string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(stateDir, "credentials"),
		FilePasswordFunc:         filePasswordPrompt(filePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// filePasswordPrompt never falls back to a built-in password, which would
// leave the credentials file readable by anyone with the binary.
func filePasswordPrompt(password string) keyring.PromptFunc {
	if password != "" {
		return keyring.FixedStringPrompt(password)
	}
	return keyring.TerminalPrompt
}

// KeyringStore keeps the session in a keyring, one item per field.
type KeyringStore struct {
	ring keyring.Keyring
}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore wraps ring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (k *KeyringStore) Load() (Session, error) {
	rawID, err := k.get(keyUserID)
	if err != nil {
		return Session{}, err
	}
	if rawID == "" {
		return Session{}, ErrNoUser
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return Session{}, fmt.Errorf("invalid stored user id %q: %w", rawID, ErrNoUser)
	}

	s := Session{UserID: id}
	if s.Token, err = k.get(keyToken); err != nil {
		return Session{}, err
	}
	if s.Role, err = k.get(keyRole); err != nil {
		return Session{}, err
	}
	if s.Username, err = k.get(keyUsername); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (k *KeyringStore) Save(s Session) error {
	fields := []struct{ key, value string }{
		{keyToken, s.Token},
		{keyUserID, s.UserIDString()},
		{keyRole, s.Role},
		{keyUsername, s.Username},
	}
	for _, f := range fields {
		if err := k.ring.Set(keyring.Item{Key: f.key, Data: []byte(f.value), Label: serviceName + " " + f.key}); err != nil {
			return fmt.Errorf("setting credential %q: %w", f.key, err)
		}
	}
	return nil
}

func (k *KeyringStore) Clear() error {
	for _, key := range []string{keyToken, keyUserID, keyRole, keyUsername} {
		if err := k.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("deleting credential %q: %w", key, err)
		}
	}
	return nil
}

// get returns "" for a missing item.
func (k *KeyringStore) get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Open returns the store selected by backend ("keyring" or "memory").
// filePassword protects the encrypted file fallback of the keyring backend.
func Open(backend, stateDir, filePassword string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "keyring", "":
		ring, err := OpenKeyring(stateDir, filePassword)
		if err != nil {
			return nil, err
		}
		return NewKeyringStore(ring), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
