// Package memory provides in-memory implementations of the vault stores.
//
// They keep the same encryption boundary as the SQLite stores: secrets and
// payloads are held only as sealed blobs. Used for tests and ephemeral runs.
package memory
