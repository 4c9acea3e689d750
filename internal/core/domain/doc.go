// Package domain defines the core business entities for the wkyt vault.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: OAuth tokens for one provider account
//   - EncryptedBlob: AEAD output persisted by the stores
//   - Record: An ingested provider item with an opaque payload
//   - SyncCursor: Resumable ingestion position per account
//   - AuthState: The OAuth credential lifecycle state machine
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
