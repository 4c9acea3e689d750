// Package google provides shared infrastructure for Google API connectors.
//
// It contains the Google OAuth handler (offline access, userinfo identity,
// token revocation), API client construction on top of the vault's token
// sources, Google API error classification and a client-side rate limiter.
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/gmail.readonly (restricted)
//   - https://www.googleapis.com/auth/userinfo.email (non-sensitive)
//
// For user-created internal apps, restricted scopes don't require verification.
package google
