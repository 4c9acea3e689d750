package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

// defaultQueryLimit applies when the caller sets no limit.
const defaultQueryLimit = 20

// QueryRecordsInput is the input schema for the query_records tool.
type QueryRecordsInput struct {
	Provider string `json:"provider" jsonschema:"provider to query: google or github"`
	Kind     string `json:"kind,omitempty" jsonschema:"only records of this kind, e.g. message"`
	Since    string `json:"since,omitempty" jsonschema:"only records updated at or after this RFC 3339 time"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of records to return (default 20)"`
}

// QueryRecordsOutput is the output schema for the query_records tool.
type QueryRecordsOutput struct {
	Records []RecordOutput `json:"records"`
	Count   int            `json:"count"`
}

// RecordOutput is one record. Payload holds UTF-8 payloads as text and
// PayloadBase64 anything else.
type RecordOutput struct {
	Provider      string `json:"provider"`
	SourceID      string `json:"source_id"`
	Kind          string `json:"kind"`
	UpdatedAt     string `json:"updated_at"`
	Payload       string `json:"payload,omitempty"`
	PayloadBase64 string `json:"payload_base64,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SyncInput is the input schema for the sync tool.
type SyncInput struct {
	Provider  string `json:"provider,omitempty" jsonschema:"provider of the account to sync; empty syncs every account"`
	AccountID string `json:"account_id,omitempty" jsonschema:"account to sync; required with provider"`
}

// SyncOutput is the output schema for the sync tool.
type SyncOutput struct {
	Reports []ReportOutput `json:"reports"`
	Errors  string         `json:"errors,omitempty"`
}

// ReportOutput summarises one ingestion pass.
type ReportOutput struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
	Pages     int    `json:"pages"`
}

// AccountsInput is the empty input of the accounts tool.
type AccountsInput struct{}

// AccountsOutput is the output schema for the accounts tool.
type AccountsOutput struct {
	Accounts []AccountOutput `json:"accounts"`
}

// AccountOutput identifies one connected account.
type AccountOutput struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
}

// InitiateAuthInput is the input schema for the initiate_auth tool.
type InitiateAuthInput struct {
	Provider string `json:"provider" jsonschema:"provider to sign in to: google or github"`
}

// InitiateAuthOutput is the pending authorization the user must open.
type InitiateAuthOutput struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	ExpiresAt        string `json:"expires_at"`
}

// CompleteAuthInput is the input schema for the complete_auth tool.
type CompleteAuthInput struct {
	Provider string `json:"provider" jsonschema:"provider the authorization was started for"`
	Code     string `json:"code" jsonschema:"authorization code from the redirect"`
	State    string `json:"state" jsonschema:"state from the redirect"`
}

// CompleteAuthOutput describes the signed-in account.
type CompleteAuthOutput struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
	ExpiresAt string `json:"expires_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_records",
		Description: "List decrypted vault records of one provider, most recently updated first",
	}, s.handleQueryRecords)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Pull new and changed records from one account, or from every account",
	}, s.handleSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "accounts",
		Description: "List connected provider accounts",
	}, s.handleAccounts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "initiate_auth",
		Description: "Start an OAuth sign-in and return the URL the user must open",
	}, s.handleInitiateAuth)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "complete_auth",
		Description: "Finish an OAuth sign-in with the code and state from the redirect",
	}, s.handleCompleteAuth)
}

// handleQueryRecords handles the query_records tool invocation.
func (s *Server) handleQueryRecords(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryRecordsInput,
) (*mcp.CallToolResult, QueryRecordsOutput, error) {
	filter, err := toFilter(input)
	if err != nil {
		return nil, QueryRecordsOutput{}, err
	}

	views, err := s.ports.Vault.QueryRecords(ctx, filter)
	if err != nil {
		return nil, QueryRecordsOutput{}, err
	}

	output := QueryRecordsOutput{
		Records: make([]RecordOutput, len(views)),
		Count:   len(views),
	}
	for i := range views {
		output.Records[i] = toRecordOutput(views[i])
	}
	return nil, output, nil
}

func toFilter(input QueryRecordsInput) (domain.RecordFilter, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return domain.RecordFilter{}, err
	}
	filter := domain.RecordFilter{Provider: provider, Limit: input.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if input.Kind != "" {
		if filter.Kind, err = domain.ParseRecordKind(input.Kind); err != nil {
			return domain.RecordFilter{}, err
		}
	}
	if input.Since != "" {
		if filter.Since, err = time.Parse(time.RFC3339, input.Since); err != nil {
			return domain.RecordFilter{}, fmt.Errorf("%w: since: %w", domain.ErrInvalidInput, err)
		}
	}
	return filter, nil
}

func toRecordOutput(v driving.RecordView) RecordOutput {
	out := RecordOutput{
		Provider:  string(v.Provider),
		SourceID:  v.SourceID,
		Kind:      string(v.Kind),
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
	switch {
	case v.Err != nil:
		out.Error = v.Err.Error()
	case utf8.Valid(v.Payload):
		out.Payload = string(v.Payload)
	default:
		out.PayloadBase64 = base64.StdEncoding.EncodeToString(v.Payload)
	}
	return out
}

// handleSync handles the sync tool invocation.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if input.Provider == "" {
		reports, err := s.ports.Vault.SyncAll(ctx)
		output := SyncOutput{Reports: toReportOutputs(reports)}
		if err != nil {
			output.Errors = err.Error()
		}
		return nil, output, nil
	}

	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	if input.AccountID == "" {
		return nil, SyncOutput{}, fmt.Errorf("%w: account_id is required with provider", domain.ErrInvalidInput)
	}

	report, err := s.ports.Vault.Sync(ctx, provider, input.AccountID)
	if err != nil {
		return nil, SyncOutput{}, err
	}
	return nil, SyncOutput{Reports: toReportOutputs([]domain.SyncReport{*report})}, nil
}

func toReportOutputs(reports []domain.SyncReport) []ReportOutput {
	out := make([]ReportOutput, len(reports))
	for i, r := range reports {
		out[i] = ReportOutput{
			Provider:  string(r.Provider),
			AccountID: r.AccountID,
			Added:     r.RecordsAdded,
			Updated:   r.RecordsUpdated,
			Unchanged: r.RecordsUnchanged,
			Failed:    r.RecordsFailed,
			Pages:     r.Pages,
		}
	}
	return out
}

// handleAccounts handles the accounts tool invocation.
func (s *Server) handleAccounts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ AccountsInput,
) (*mcp.CallToolResult, AccountsOutput, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, AccountsOutput{}, err
	}
	return nil, AccountsOutput{Accounts: accounts}, nil
}

func (s *Server) accounts(ctx context.Context) ([]AccountOutput, error) {
	keys, err := s.ports.Vault.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountOutput, len(keys))
	for i, k := range keys {
		out[i] = AccountOutput{Provider: string(k.Provider), AccountID: k.AccountID}
	}
	return out, nil
}

// handleInitiateAuth handles the initiate_auth tool invocation.
func (s *Server) handleInitiateAuth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InitiateAuthInput,
) (*mcp.CallToolResult, InitiateAuthOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, InitiateAuthOutput{}, err
	}
	req, err := s.ports.Vault.InitiateAuth(ctx, provider)
	if err != nil {
		return nil, InitiateAuthOutput{}, err
	}
	return nil, InitiateAuthOutput{
		AuthorizationURL: req.AuthorizationURL,
		State:            req.State,
		ExpiresAt:        req.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// handleCompleteAuth handles the complete_auth tool invocation.
func (s *Server) handleCompleteAuth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompleteAuthInput,
) (*mcp.CallToolResult, CompleteAuthOutput, error) {
	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		return nil, CompleteAuthOutput{}, err
	}
	info, err := s.ports.Vault.CompleteAuth(ctx, provider, input.Code, input.State)
	if err != nil {
		return nil, CompleteAuthOutput{}, err
	}
	return nil, CompleteAuthOutput{
		Provider:  string(info.Provider),
		AccountID: info.AccountID,
		ExpiresAt: info.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}
