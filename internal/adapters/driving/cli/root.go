// Package cli provides the wkyt command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wkyt-app/wkyt/internal/config"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
	"github.com/wkyt-app/wkyt/internal/logger"
)

var (
	version = "dev"
	verbose bool

	vaultService driving.VaultService
	vaultErr     error
	appConfig    *config.Config
	configStore  driven.ConfigStore
)

var rootCmd = &cobra.Command{
	Use:   "wkyt",
	Short: "On-device data vault",
	Long: `wkyt connects your accounts with OAuth and keeps an encrypted copy of
their data on this device. Only this device's keyring can open it.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic logs to stderr")
}

// SetVaultService sets the service every command talks to.
func SetVaultService(svc driving.VaultService) {
	vaultService = svc
}

// SetVaultError records why the vault could not be opened. Commands that
// need the vault report it; the rest still run.
func SetVaultError(err error) {
	vaultErr = err
}

// SetConfigStore sets the store behind the config command.
func SetConfigStore(store driven.ConfigStore) {
	configStore = store
}

// SetConfig sets the resolved configuration.
func SetConfig(cfg *config.Config) {
	appConfig = cfg
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireVault() (driving.VaultService, error) {
	if vaultService == nil {
		if vaultErr != nil {
			return nil, hint(fmt.Errorf("open vault: %w", vaultErr))
		}
		return nil, errVaultNotConfigured
	}
	return vaultService, nil
}

func redirectURI(p domain.Provider) string {
	if appConfig != nil {
		if pc, ok := appConfig.Providers[p]; ok && pc.RedirectURI != "" {
			return pc.RedirectURI
		}
	}
	return config.DefaultRedirectURI
}
