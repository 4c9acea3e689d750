// Command wkyt is an on-device vault for personal data pulled from
// third-party accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wkyt-app/wkyt/internal/adapters/driven/config/file"
	"github.com/wkyt-app/wkyt/internal/adapters/driven/crypto"
	"github.com/wkyt-app/wkyt/internal/adapters/driven/oauth"
	"github.com/wkyt-app/wkyt/internal/adapters/driven/storage/sqlite"
	"github.com/wkyt-app/wkyt/internal/adapters/driving/cli"
	"github.com/wkyt-app/wkyt/internal/config"
	"github.com/wkyt-app/wkyt/internal/connectors"
	"github.com/wkyt-app/wkyt/internal/core/services"
	"github.com/wkyt-app/wkyt/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)

	// 1. Configuration
	store, err := file.NewConfigStore(os.Getenv(file.EnvKey("config_dir")))
	if err != nil {
		logger.Error("open config: %v", err)
		os.Exit(1)
	}
	cli.SetConfigStore(store)

	// 2. Vault; commands that do not need it still run when it fails to open
	cleanup := func() {}
	cfg, err := config.Load(store)
	if err == nil {
		cli.SetConfig(cfg)
		var closeVault func()
		if closeVault, err = openVault(ctx, cfg); err == nil {
			cleanup = closeVault
		}
	}
	if err != nil {
		cli.SetVaultError(err)
	}

	err = cli.Execute(ctx)
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// openVault builds the vault and hands it to the CLI. The returned func
// releases the databases and wipes the vault key.
func openVault(ctx context.Context, cfg *config.Config) (func(), error) {
	// Vault key, loaded once per process
	ring, err := crypto.OpenKeyring(crypto.KeyringOptions{
		Backends: cfg.KeyringBackends,
		FileDir:  filepath.Join(cfg.DataDir, "keyring"),
	})
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadVaultKey(ctx, ring)
	if err != nil {
		return nil, fmt.Errorf("load vault key: %w", err)
	}
	codec := crypto.NewCodec(key)

	// Stores
	credentials, err := sqlite.NewStore(filepath.Join(cfg.DataDir, config.CredentialsDBName), sqlite.SchemaCredentials, codec)
	if err != nil {
		_ = key.Close()
		return nil, fmt.Errorf("open credentials store: %w", err)
	}
	records, err := sqlite.NewStore(filepath.Join(cfg.DataDir, config.RecordsDBName), sqlite.SchemaRecords, codec)
	if err != nil {
		_ = credentials.Close()
		_ = key.Close()
		return nil, fmt.Errorf("open records store: %w", err)
	}

	// Services
	protocol := oauth.NewProtocol(cfg, connectors.OAuthHandlers()...)
	client := services.NewOAuthClient(protocol, credentials.SecretStore(), services.OAuthOptions{
		SessionTTL:    cfg.SessionTTL,
		RefreshMargin: cfg.RefreshMargin,
	})
	engine := services.NewIngestionEngine(
		connectors.NewRegistry(cfg),
		client,
		records.RecordStore(),
		records.CursorStore(),
		credentials.SecretStore(),
	)
	cli.SetVaultService(services.NewVaultService(
		client,
		engine,
		records.RecordStore(),
		records.CursorStore(),
		credentials.SecretStore(),
	))

	return func() {
		if err := records.Close(); err != nil {
			logger.Warn("close records store: %v", err)
		}
		if err := credentials.Close(); err != nil {
			logger.Warn("close credentials store: %v", err)
		}
		_ = key.Close()
	}, nil
}
