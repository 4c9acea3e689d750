// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The OAuth client, ingestion engine and vault façade never touch the
// network or disk directly.
package services
