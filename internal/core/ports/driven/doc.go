// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Codec: Authenticated encryption of credentials and payloads
//   - KeySource: Supplies the vault root key (OS keyring)
//   - SecretStore: Encrypted credential persistence
//   - RecordStore: Encrypted record persistence
//   - CursorStore: Resumable sync positions
//   - OAuthProtocol: Token endpoint calls for each provider
//   - AdapterFactory: Creates provider adapters bound to an account's tokens
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
