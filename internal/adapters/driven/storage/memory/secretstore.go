package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/crypto"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure SecretStore implements the interface.
var _ driven.SecretStore = (*SecretStore)(nil)

type sealedCredential struct {
	blob      domain.EncryptedBlob
	createdAt time.Time
	updatedAt time.Time
}

// SecretStore is an in-memory implementation of driven.SecretStore.
type SecretStore struct {
	mu    sync.RWMutex
	codec driven.Codec
	creds map[domain.AccountKey]sealedCredential
}

// NewSecretStore creates a new in-memory secret store sealing with codec.
func NewSecretStore(codec driven.Codec) *SecretStore {
	return &SecretStore{
		codec: codec,
		creds: make(map[domain.AccountKey]sealedCredential),
	}
}

// Put stores or replaces the credential for its account.
func (s *SecretStore) Put(_ context.Context, cred domain.Credential) error {
	if !cred.Provider.IsValid() || cred.AccountID == "" {
		return fmt.Errorf("%w: credential needs provider and account id", domain.ErrInvalidInput)
	}

	blob, err := crypto.SealCredential(s.codec, cred)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	entry := sealedCredential{blob: blob, createdAt: now, updatedAt: now}
	if prev, ok := s.creds[cred.Key()]; ok {
		entry.createdAt = prev.createdAt
	}
	s.creds[cred.Key()] = entry
	return nil
}

// Get retrieves and decrypts the credential for an account.
func (s *SecretStore) Get(_ context.Context, provider domain.Provider, accountID string) (*domain.Credential, error) {
	s.mu.RLock()
	entry, ok := s.creds[domain.AccountKey{Provider: provider, AccountID: accountID}]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	cred := &domain.Credential{
		Provider:  provider,
		AccountID: accountID,
		CreatedAt: entry.createdAt,
		UpdatedAt: entry.updatedAt,
	}
	if err := crypto.OpenCredential(s.codec, entry.blob, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Delete removes the credential for an account.
func (s *SecretStore) Delete(_ context.Context, provider domain.Provider, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, domain.AccountKey{Provider: provider, AccountID: accountID})
	return nil
}

// List returns the stored accounts ordered by provider and account.
func (s *SecretStore) List(_ context.Context) ([]domain.AccountKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.AccountKey, 0, len(s.creds))
	for k := range s.creds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Provider != keys[j].Provider {
			return keys[i].Provider < keys[j].Provider
		}
		return keys[i].AccountID < keys[j].AccountID
	})
	return keys, nil
}
