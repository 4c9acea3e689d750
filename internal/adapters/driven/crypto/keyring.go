package crypto

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/99designs/keyring"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/logger"
)

// DefaultServiceName is the keyring service holding the vault root key.
const DefaultServiceName = "wkyt-vault"

const rootKeyItem = "root-key"

// Ensure KeyringSource implements the interface.
var _ driven.KeySource = (*KeyringSource)(nil)

// KeyringSource keeps the root key in the OS secure key store.
type KeyringSource struct {
	ring   keyring.Keyring
	random io.Reader
}

// KeyringOptions selects the keyring backend.
type KeyringOptions struct {
	// ServiceName defaults to DefaultServiceName.
	ServiceName string
	// Backends restricts the allowed backends, e.g. "keychain", "secret-service", "file".
	// Empty allows every backend available on the platform.
	Backends []string
	// FileDir is used by the encrypted file backend.
	FileDir string
}

// OpenKeyring opens the platform keyring.
func OpenKeyring(opts KeyringOptions) (*KeyringSource, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}

	backends := make([]keyring.BackendType, 0, len(opts.Backends))
	for _, b := range opts.Backends {
		backends = append(backends, keyring.BackendType(b))
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              opts.ServiceName,
		AllowedBackends:          backends,
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         keyring.TerminalPrompt,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open keyring: %v", domain.ErrKeyUnavailable, err)
	}

	return NewKeyringSource(ring), nil
}

// NewKeyringSource wraps an already opened keyring.
func NewKeyringSource(ring keyring.Keyring) *KeyringSource {
	return &KeyringSource{ring: ring, random: rand.Reader}
}

// LoadKey returns the root key, generating and storing one on first use.
func (s *KeyringSource) LoadKey(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := s.ring.Get(rootKeyItem)
	switch {
	case err == nil:
		if len(item.Data) != RootKeySize {
			return nil, fmt.Errorf("%w: stored root key has %d bytes", domain.ErrKeyUnavailable, len(item.Data))
		}
		// Callers wipe the returned slice; keep the backend's copy intact.
		return append([]byte(nil), item.Data...), nil
	case errors.Is(err, keyring.ErrKeyNotFound):
		return s.generate()
	default:
		return nil, fmt.Errorf("%w: read root key: %v", domain.ErrKeyUnavailable, err)
	}
}

func (s *KeyringSource) generate() ([]byte, error) {
	root := make([]byte, RootKeySize)
	if _, err := io.ReadFull(s.random, root); err != nil {
		return nil, fmt.Errorf("%w: generate root key: %v", domain.ErrKeyUnavailable, err)
	}

	err := s.ring.Set(keyring.Item{
		Key:         rootKeyItem,
		Data:        append([]byte(nil), root...),
		Label:       "wkyt vault root key",
		Description: "Encrypts credentials and records stored by wkyt",
	})
	if err != nil {
		zero(root)
		return nil, fmt.Errorf("%w: store root key: %v", domain.ErrKeyUnavailable, err)
	}

	logger.Info("generated new vault root key")
	return root, nil
}
