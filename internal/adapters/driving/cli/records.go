package cli

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

var (
	recordsProvider string
	recordsKind     string
	recordsSince    string
	recordsLimit    int
	recordsJSON     bool
)

// previewLen is the payload preview width in table output.
const previewLen = 60

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect ingested records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, most recently updated first",
	Long: `Decrypts and lists records. A record that fails its integrity check is
shown with its error; the rest of the listing is unaffected.

Examples:
  wkyt records list --provider google --limit 20
  wkyt records list --provider github --since 2024-01-01 --json`,
	Args: cobra.NoArgs,
	RunE: runRecordsList,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <provider> <source-id>",
	Short: "Delete one record from the vault",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordsDelete,
}

func init() {
	recordsListCmd.Flags().StringVarP(&recordsProvider, "provider", "p", "", "provider to list (required)")
	recordsListCmd.Flags().StringVarP(&recordsKind, "kind", "k", "", "only records of this kind")
	recordsListCmd.Flags().StringVar(&recordsSince, "since", "", "only records updated at or after this date (YYYY-MM-DD or RFC 3339)")
	recordsListCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 50, "maximum number of records")
	recordsListCmd.Flags().BoolVar(&recordsJSON, "json", false, "output records as JSON")
	_ = recordsListCmd.MarkFlagRequired("provider")
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsList(cmd *cobra.Command, _ []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}

	filter, err := buildFilter(recordsProvider, recordsKind, recordsSince, recordsLimit)
	if err != nil {
		return err
	}

	views, err := svc.QueryRecords(cmd.Context(), filter)
	if err != nil {
		return hint(fmt.Errorf("query records: %w", err))
	}

	if recordsJSON {
		return outputRecordsJSON(cmd, views)
	}
	return outputRecordsTable(cmd, views)
}

func buildFilter(provider, kind, since string, limit int) (domain.RecordFilter, error) {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return domain.RecordFilter{}, err
	}
	filter := domain.RecordFilter{Provider: p, Limit: limit}

	if kind != "" {
		k, err := domain.ParseRecordKind(kind)
		if err != nil {
			return domain.RecordFilter{}, err
		}
		filter.Kind = k
	}
	if since != "" {
		t, err := parseSince(since)
		if err != nil {
			return domain.RecordFilter{}, err
		}
		filter.Since = t
	}
	return filter, nil
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --since %q is not a date", domain.ErrInvalidInput, s)
	}
	return t, nil
}

type recordJSON struct {
	Provider    string          `json:"provider"`
	SourceID    string          `json:"source_id"`
	Kind        string          `json:"kind"`
	ContentHash string          `json:"content_hash,omitempty"`
	IngestedAt  time.Time       `json:"ingested_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Text        string          `json:"text,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func outputRecordsJSON(cmd *cobra.Command, views []driving.RecordView) error {
	out := make([]recordJSON, 0, len(views))
	for _, v := range views {
		r := recordJSON{
			Provider:    string(v.Provider),
			SourceID:    v.SourceID,
			Kind:        string(v.Kind),
			ContentHash: v.ContentHash,
			IngestedAt:  v.IngestedAt,
			UpdatedAt:   v.UpdatedAt,
		}
		switch {
		case v.Err != nil:
			r.Error = v.Err.Error()
		case json.Valid(v.Payload):
			r.Payload = v.Payload
		default:
			r.Text = string(v.Payload)
		}
		out = append(out, r)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRecordsTable(cmd *cobra.Command, views []driving.RecordView) error {
	if len(views) == 0 {
		cmd.Println(mutedStyle.Render("No records."))
		return nil
	}

	widths := []int{36, 8, 20}
	cmd.Println(headerStyle.Render(row(widths, "SOURCE ID", "KIND", "UPDATED", "PREVIEW")))
	for _, v := range views {
		text := preview(v.Payload)
		if v.Err != nil {
			text = errorStyle.Render("unreadable: " + v.Err.Error())
		}
		cmd.Println(row(widths, v.SourceID, string(v.Kind), v.UpdatedAt.Local().Format(time.DateTime), text))
	}
	cmd.Println(mutedStyle.Render(fmt.Sprintf("%d records", len(views))))
	return nil
}

// preview returns the first printable characters of a payload.
func preview(payload []byte) string {
	if !utf8.Valid(payload) {
		return fmt.Sprintf("<%d bytes>", len(payload))
	}
	out := make([]rune, 0, previewLen)
	for _, r := range string(payload) {
		if len(out) == previewLen {
			return string(out) + "..."
		}
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return err
	}

	if err := svc.DeleteRecord(cmd.Context(), provider, args[1]); err != nil {
		return hint(fmt.Errorf("delete record: %w", err))
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Deleted %s/%s", provider, args[1])))
	return nil
}
