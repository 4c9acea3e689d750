// Package connectors wires the provider adapters and OAuth handlers.
//
// Each provider lives in its own subpackage; Registry creates adapters
// bound to an account's token source and OAuthHandlers lists the protocol
// quirks of every supported provider.
package connectors
