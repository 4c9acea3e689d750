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

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

type recordKey struct {
	provider domain.Provider
	sourceID string
}

type sealedRecord struct {
	header domain.RecordHeader
	blob   domain.EncryptedBlob
}

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	codec   driven.Codec
	records map[recordKey]sealedRecord
	writes  int
}

// NewRecordStore creates a new in-memory record store sealing with codec.
func NewRecordStore(codec driven.Codec) *RecordStore {
	return &RecordStore{
		codec:   codec,
		records: make(map[recordKey]sealedRecord),
	}
}

// Upsert stores or replaces a record, keeping the first IngestedAt.
func (s *RecordStore) Upsert(_ context.Context, rec domain.Record) error {
	if !rec.Provider.IsValid() || rec.SourceID == "" {
		return fmt.Errorf("%w: record needs provider and source id", domain.ErrInvalidInput)
	}

	blob, err := crypto.SealRecord(s.codec, rec.Provider, rec.SourceID, rec.Payload)
	if err != nil {
		return fmt.Errorf("encrypting record: %w", err)
	}

	h := rec.RecordHeader
	now := time.Now().UTC()
	if h.IngestedAt.IsZero() {
		h.IngestedAt = now
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = now
	}
	if h.ContentHash == "" {
		h.ContentHash = domain.ContentHash(rec.Payload)
	}
	if h.Kind == "" {
		h.Kind = domain.RecordKindOther
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{provider: rec.Provider, sourceID: rec.SourceID}
	if prev, ok := s.records[key]; ok {
		h.IngestedAt = prev.header.IngestedAt
	}
	s.records[key] = sealedRecord{header: h, blob: blob}
	s.writes++
	return nil
}

// Header returns record metadata without decrypting.
func (s *RecordStore) Header(_ context.Context, provider domain.Provider, sourceID string) (*domain.RecordHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.records[recordKey{provider: provider, sourceID: sourceID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	h := entry.header
	return &h, nil
}

// Get returns the decrypted record.
func (s *RecordStore) Get(_ context.Context, provider domain.Provider, sourceID string) (*domain.Record, error) {
	s.mu.RLock()
	entry, ok := s.records[recordKey{provider: provider, sourceID: sourceID}]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	payload, err := crypto.OpenRecord(s.codec, provider, sourceID, entry.blob)
	if err != nil {
		return nil, err
	}
	return &domain.Record{RecordHeader: entry.header, Payload: payload}, nil
}

// Query returns matching records, newest first.
func (s *RecordStore) Query(_ context.Context, filter domain.RecordFilter) ([]domain.RecordResult, error) {
	s.mu.RLock()
	matched := make([]sealedRecord, 0, len(s.records))
	for _, entry := range s.records {
		h := entry.header
		if filter.Provider != "" && h.Provider != filter.Provider {
			continue
		}
		if filter.Kind != "" && h.Kind != filter.Kind {
			continue
		}
		if !filter.Since.IsZero() && h.UpdatedAt.Before(filter.Since) {
			continue
		}
		matched = append(matched, entry)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].header, matched[j].header
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.SourceID < b.SourceID
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	results := make([]domain.RecordResult, 0, len(matched))
	for _, entry := range matched {
		result := domain.RecordResult{Record: domain.Record{RecordHeader: entry.header}}
		payload, err := crypto.OpenRecord(s.codec, entry.header.Provider, entry.header.SourceID, entry.blob)
		if err != nil {
			result.Err = err
		} else {
			result.Record.Payload = payload
		}
		results = append(results, result)
	}
	return results, nil
}

// Delete removes a record.
func (s *RecordStore) Delete(_ context.Context, provider domain.Provider, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey{provider: provider, sourceID: sourceID})
	return nil
}

// Writes returns how many upserts the store has applied.
func (s *RecordStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
