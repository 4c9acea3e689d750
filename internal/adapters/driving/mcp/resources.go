package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for vault resources.
	uriScheme = "wkyt://"

	// resourceRecordLimit bounds the records resource.
	resourceRecordLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "accounts",
		Name:        "accounts",
		Description: "Connected provider accounts",
		MIMEType:    "application/json",
	}, s.handleAccountsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "records/{provider}",
		Name:        "provider-records",
		Description: "Most recently updated records of a provider",
		MIMEType:    "application/json",
	}, s.handleRecordsResource)
}

// handleAccountsResource returns the connected accounts.
func (s *Server) handleAccountsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return jsonResource(req.Params.URI, accounts)
}

// handleRecordsResource returns recent records of one provider.
func (s *Server) handleRecordsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	provider, err := domain.ParseProvider(extractProvider(req.Params.URI))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	views, err := s.ports.Vault.QueryRecords(ctx, domain.RecordFilter{Provider: provider, Limit: resourceRecordLimit})
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}

	records := make([]RecordOutput, len(views))
	for i := range views {
		records[i] = toRecordOutput(views[i])
	}
	return jsonResource(req.Params.URI, records)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractProvider extracts the provider from a URI like wkyt://records/{provider}.
func extractProvider(uri string) string {
	const prefix = uriScheme + "records/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
