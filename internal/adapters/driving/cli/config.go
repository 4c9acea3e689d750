package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

var errConfigNotLoaded = errors.New("configuration store not loaded")

// settableKeys are the keys config set accepts. Provider keys are added per
// provider in init.
var settableKeys = map[string]bool{
	"data_dir":            true,
	"network.timeout":     true,
	"auth.refresh_margin": true,
	"auth.session_ttl":    true,
	"keyring.backends":    true,
	"sync.page_size":      true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long: `Reads and writes ~/.wkyt/config.toml. Environment variables named
WKYT_<KEY> (dots become underscores) override the file, for example
WKYT_GOOGLE_CLIENT_SECRET.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configStore == nil {
			return errConfigNotLoaded
		}
		cmd.Println(configStore.Path())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key to the configuration file",
	Long: `Writes a key to the configuration file. Lists such as
keyring.backends and <provider>.scopes are comma separated.

Examples:
  wkyt config set google.client_id 1234.apps.googleusercontent.com
  wkyt config set network.timeout 45s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	for _, p := range domain.Providers() {
		for _, k := range []string{"client_id", "client_secret", "redirect_uri", "auth_url",
			"token_url", "revoke_url", "userinfo_url", "api_base_url", "scopes"} {
			settableKeys[string(p)+"."+k] = true
		}
	}

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errConfigNotLoaded
	}
	key := args[0]
	if !settableKeys[key] {
		return unknownKey(key)
	}

	val, ok := configStore.Get(key)
	switch {
	case !ok:
		cmd.Println(mutedStyle.Render("(unset)"))
	case isSecretKey(key):
		cmd.Println(domain.Secret(fmt.Sprint(val)).String())
	default:
		cmd.Println(fmt.Sprint(val))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errConfigNotLoaded
	}
	key, value := args[0], args[1]
	if !settableKeys[key] {
		return unknownKey(key)
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	shown := value
	if isSecretKey(key) {
		shown = domain.Secret(value).String()
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Set %s = %s", key, shown)))
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "secret")
}

func unknownKey(key string) error {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("%w: unknown key %q (known: %s)", domain.ErrInvalidInput, key, strings.Join(keys, ", "))
}
