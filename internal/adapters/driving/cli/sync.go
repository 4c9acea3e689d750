package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync [provider account]",
	Short: "Pull new and changed records into the vault",
	Long: `Runs an ingestion pass for one account, or for every connected account
when no arguments are given. Accounts of different providers sync
concurrently. An interrupted pass resumes from its last committed page.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return errors.New("expected no arguments or <provider> <account>")
		}
		return nil
	},
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 2 {
		provider, err := domain.ParseProvider(args[0])
		if err != nil {
			return err
		}
		cmd.Printf("Synchronising %s/%s...\n", provider, args[1])

		stop := startSpinner(cmd, "syncing")
		report, err := svc.Sync(ctx, provider, args[1])
		stop()
		if report != nil {
			printReport(cmd, *report)
		}
		if err != nil {
			return hint(fmt.Errorf("sync failed: %w", err))
		}
		return nil
	}

	cmd.Println("Synchronising all accounts...")
	stop := startSpinner(cmd, "syncing")
	reports, err := svc.SyncAll(ctx)
	stop()
	for _, r := range reports {
		printReport(cmd, r)
	}
	if err != nil {
		return hint(fmt.Errorf("sync failed: %w", err))
	}
	if len(reports) == 0 {
		cmd.Println(mutedStyle.Render("No accounts connected."))
	}
	return nil
}

// startSpinner shows progress unless verbose logs are already streaming.
func startSpinner(cmd *cobra.Command, message string) func() {
	if logger.IsVerbose() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = cmd.ErrOrStderr()
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

func printReport(cmd *cobra.Command, r domain.SyncReport) {
	status := successStyle.Render("ok")
	if r.RecordsFailed > 0 {
		status = warnStyle.Render(fmt.Sprintf("%d failed", r.RecordsFailed))
	}
	if r.CompletedAt.IsZero() {
		status = errorStyle.Render("incomplete")
	}
	cmd.Printf("%s/%s: %d added, %d updated, %d unchanged over %d pages (%s)\n",
		r.Provider, r.AccountID, r.RecordsAdded, r.RecordsUpdated, r.RecordsUnchanged, r.Pages, status)
}
