package memory

import (
	"context"
	"sync"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure CursorStore implements the interface.
var _ driven.CursorStore = (*CursorStore)(nil)

// CursorStore is an in-memory implementation of driven.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[domain.AccountKey]domain.SyncCursor
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[domain.AccountKey]domain.SyncCursor),
	}
}

// Save stores or updates a cursor.
func (s *CursorStore) Save(_ context.Context, cursor domain.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[domain.AccountKey{Provider: cursor.Provider, AccountID: cursor.AccountID}] = cursor
	return nil
}

// Get retrieves the cursor for an account.
func (s *CursorStore) Get(_ context.Context, provider domain.Provider, accountID string) (*domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.cursors[domain.AccountKey{Provider: provider, AccountID: accountID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cursor, nil
}

// Delete removes the cursor for an account.
func (s *CursorStore) Delete(_ context.Context, provider domain.Provider, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, domain.AccountKey{Provider: provider, AccountID: accountID})
	return nil
}
