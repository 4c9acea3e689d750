// Package sqlite provides SQLite-backed implementations of the vault stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. The vault keeps two database files:
//
//   - credentials.db: SecretStore (encrypted OAuth tokens)
//   - records.db: RecordStore (encrypted payloads) and CursorStore
//
// # Schema
//
// Each database is migrated with golang-migrate from the embedded
// migrations/credentials and migrations/records directories.
//
// # Encryption
//
// Secret material is sealed by a driven.Codec before it reaches SQL. Rows keep
// nonce, ciphertext, auth tag and key ID in separate columns. Identity columns,
// record kind, content hash and timestamps stay in clear so queries can use
// indexes without decrypting. Timestamps are stored as UTC unix nanoseconds.
//
// # Thread Safety
//
// Writes go through a single-connection writer pool and a per-key lock.
// Reads use a separate pool of up to four connections in WAL mode.
package sqlite
