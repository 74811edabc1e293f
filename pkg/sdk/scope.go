package sdk

import (
	"fmt"

	"github.com/celerix-dev/celerix-prefs/internal/vault"
)

// CategoryScope "pins" a category so callers only name documents.
type CategoryScope struct {
	store    PrefsStore
	category string
}

func newCategoryScope(s PrefsStore, category string) *CategoryScope {
	return &CategoryScope{store: s, category: category}
}

// Name returns the pinned category.
func (c *CategoryScope) Name() string { return c.category }

func (c *CategoryScope) Get(identifier string, path ...string) (any, error) {
	return c.store.Get(c.category, identifier, path...)
}

func (c *CategoryScope) Set(identifier string, val any, path ...string) error {
	return c.store.Set(c.category, identifier, val, path...)
}

func (c *CategoryScope) Delete(identifier string, path ...string) error {
	return c.store.Delete(c.category, identifier, path...)
}

// List returns the identifiers in the category, optionally filtered.
func (c *CategoryScope) List(filter map[string]any) ([]string, error) {
	return c.store.List(c.category, filter)
}

// Vault returns a scope that encrypts values before they leave the process.
// key must be vault.KeySize bytes; see vault.DeriveKey for passphrases.
func (c *CategoryScope) Vault(key []byte) *VaultScope {
	return &VaultScope{scope: c, key: key}
}

// VaultScope stores string values sealed with AES-GCM. The service only
// ever sees the hex encoded ciphertext.
type VaultScope struct {
	scope *CategoryScope
	key   []byte
}

// Set seals plaintext and stores it at path inside the document.
func (v *VaultScope) Set(identifier, plaintext string, path ...string) error {
	sealed, err := vault.Seal([]byte(plaintext), v.key)
	if err != nil {
		return err
	}
	return v.scope.Set(identifier, sealed, path...)
}

// Get retrieves and opens a value stored by Set.
func (v *VaultScope) Get(identifier string, path ...string) (string, error) {
	val, err := v.scope.Get(identifier, path...)
	if err != nil {
		return "", err
	}

	sealed, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("vault data is not a string")
	}

	plaintext, err := vault.Open(sealed, v.key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
