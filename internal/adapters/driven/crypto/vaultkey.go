package crypto

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// RootKeySize is the length of the vault root key.
const RootKeySize = 32

const subkeyInfoPrefix = "wkyt/subkey/"

var knownKeyIDs = map[string]bool{
	domain.KeyIDCredentials: true,
	domain.KeyIDRecords:     true,
}

// VaultKey holds the root key in memory for the life of the process.
type VaultKey struct {
	mu   sync.RWMutex
	root []byte
}

// NewVaultKey copies root into a new VaultKey. The caller should wipe its copy.
func NewVaultKey(root []byte) (*VaultKey, error) {
	if len(root) != RootKeySize {
		return nil, fmt.Errorf("%w: root key must be %d bytes, got %d", domain.ErrKeyUnavailable, RootKeySize, len(root))
	}
	k := &VaultKey{root: make([]byte, RootKeySize)}
	copy(k.root, root)
	return k, nil
}

// LoadVaultKey reads the root key from src and wipes the intermediate buffer.
func LoadVaultKey(ctx context.Context, src driven.KeySource) (*VaultKey, error) {
	root, err := src.LoadKey(ctx)
	if err != nil {
		return nil, err
	}
	defer zero(root)
	return NewVaultKey(root)
}

// derive returns the subkey for keyID. The caller must zero it.
func (k *VaultKey) derive(keyID string) ([]byte, error) {
	if !knownKeyIDs[keyID] {
		return nil, fmt.Errorf("%w: unknown key id %q", domain.ErrIntegrityFailure, keyID)
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.root == nil {
		return nil, fmt.Errorf("%w: vault key closed", domain.ErrKeyUnavailable)
	}

	h := hkdf.New(sha256.New, k.root, nil, []byte(subkeyInfoPrefix+keyID))
	sub := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, sub); err != nil {
		return nil, fmt.Errorf("%w: derive subkey: %v", domain.ErrKeyUnavailable, err)
	}
	return sub, nil
}

// Close wipes the root key. Further use returns domain.ErrKeyUnavailable.
func (k *VaultKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	zero(k.root)
	k.root = nil
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
