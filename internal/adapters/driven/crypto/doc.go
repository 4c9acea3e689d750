// Package crypto implements the vault's at-rest encryption.
//
// A single 32-byte root key lives in the OS keyring. It is loaded once per
// process into a VaultKey and zeroed on Close. Each Encrypt or Decrypt call
// derives a purpose subkey from the root with HKDF-SHA256, keyed by the blob's
// key ID, and wipes it before returning.
//
// Blobs are sealed with XChaCha20-Poly1305 under a fresh random 192-bit nonce.
// Associated data binds a blob to the row it is stored in.
package crypto
