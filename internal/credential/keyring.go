// Package credential keeps the per-user API token in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "notifyctl"

// Tokens reads and writes API tokens, keyed by user id.
type Tokens struct {
	ring keyring.Keyring
}

// Open returns Tokens backed by the first usable system keyring.
func Open() (*Tokens, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/notifyctl/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("notifyctl-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewTokens(ring), nil
}

// NewTokens wraps an already opened keyring.
func NewTokens(ring keyring.Keyring) *Tokens {
	return &Tokens{ring: ring}
}

func tokenKey(userID string) string {
	return "api-token-" + userID
}

// Token returns the stored token for userID, or "" when none was saved.
// A missing token is not an error: the client then runs unauthenticated.
func (t *Tokens) Token(userID string) (string, error) {
	item, err := t.ring.Get(tokenKey(userID))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting token for %q: %w", userID, err)
	}
	return string(item.Data), nil
}

// SetToken stores the token for userID.
func (t *Tokens) SetToken(userID, token string) error {
	err := t.ring.Set(keyring.Item{
		Key:   tokenKey(userID),
		Data:  []byte(token),
		Label: "notifyctl API token",
	})
	if err != nil {
		return fmt.Errorf("setting token for %q: %w", userID, err)
	}
	return nil
}

// DeleteToken removes the token for userID. Removing a token that was
// never stored succeeds.
func (t *Tokens) DeleteToken(userID string) error {
	err := t.ring.Remove(tokenKey(userID))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token for %q: %w", userID, err)
	}
	return nil
}
