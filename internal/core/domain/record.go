package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// RecordKind classifies what a record describes.
type RecordKind string

const (
	RecordKindPerson       RecordKind = "person"
	RecordKindOrganization RecordKind = "organization"
	RecordKindTransaction  RecordKind = "transaction"
	RecordKindMessage      RecordKind = "message"
	RecordKindFile         RecordKind = "file"
	RecordKindMetric       RecordKind = "metric"
	RecordKindEvent        RecordKind = "event"
	RecordKindOther        RecordKind = "other"
)

// ParseRecordKind converts a name into a RecordKind.
func ParseRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case RecordKindPerson, RecordKindOrganization, RecordKindTransaction, RecordKindMessage,
		RecordKindFile, RecordKindMetric, RecordKindEvent, RecordKindOther:
		return k, nil
	}
	return "", fmt.Errorf("%w: record kind %q", ErrInvalidInput, s)
}

// RecordHeader is a record without its payload.
// Stores return headers without decrypting anything.
type RecordHeader struct {
	Provider    Provider
	SourceID    string
	Kind        RecordKind
	ContentHash string
	IngestedAt  time.Time
	UpdatedAt   time.Time
}

// Record is one ingested provider item. Identity is (Provider, SourceID).
type Record struct {
	RecordHeader

	// Payload is the opaque provider content. Stored encrypted.
	Payload []byte
}

// ContentHash returns the hex SHA-256 of payload.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// RawRecord is what a provider adapter yields before ingestion.
type RawRecord struct {
	SourceID   string
	Kind       RecordKind
	Payload    []byte
	ModifiedAt time.Time
}

// RecordFailure is a record the adapter could not fetch within an otherwise successful page.
type RecordFailure struct {
	SourceID string
	Err      error
}

// Page is one batch of records from a provider.
// An empty NextPageToken means the listing is exhausted.
type Page struct {
	Records       []RawRecord
	Failures      []RecordFailure
	NextPageToken string
}

// RecordFilter narrows a record query. Zero fields match everything.
type RecordFilter struct {
	Provider Provider
	// Since matches records updated at or after this time.
	Since time.Time
	Kind  RecordKind
	// Limit caps the result count. Zero means no limit.
	Limit int
}

// RecordResult is one query result. Err is set when the payload could not be
// decrypted; the header is still populated.
type RecordResult struct {
	Record Record
	Err    error
}
