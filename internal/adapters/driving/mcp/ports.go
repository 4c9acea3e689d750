package mcp

import (
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server needs.
type Ports struct {
	// Vault is the vault command surface.
	Vault driving.VaultService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Vault == nil {
		return ErrMissingVaultService
	}
	return nil
}
