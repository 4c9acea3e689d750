// Package mcp provides an MCP (Model Context Protocol) server adapter for the vault.
// It lets AI assistants query ingested records and trigger syncs locally.
package mcp

import "errors"

// ErrMissingVaultService is returned when the vault service is not provided.
var ErrMissingVaultService = errors.New("mcp: vault service is required")
