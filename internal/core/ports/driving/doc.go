// Package driving defines the interfaces shells (CLI, MCP) use to drive the
// vault. Implementations live in internal/core/services.
package driving
