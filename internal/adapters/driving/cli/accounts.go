package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List connected accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}

	accounts, err := svc.Accounts(cmd.Context())
	if err != nil {
		return hint(fmt.Errorf("list accounts: %w", err))
	}
	if len(accounts) == 0 {
		cmd.Println(mutedStyle.Render("No accounts connected. Run 'wkyt auth login <provider>'."))
		return nil
	}

	widths := []int{10}
	cmd.Println(headerStyle.Render(row(widths, "PROVIDER", "ACCOUNT")))
	for _, a := range accounts {
		cmd.Println(row(widths, string(a.Provider), a.AccountID))
	}
	return nil
}
