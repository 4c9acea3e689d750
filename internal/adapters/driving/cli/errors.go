package cli

import (
	"errors"
	"fmt"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

var errVaultNotConfigured = errors.New("vault service not configured")

// hint adds the user action for errors that need one.
func hint(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrReauthRequired):
		return fmt.Errorf("%w\nrun 'wkyt auth login <provider>' to sign in again", err)
	case errors.Is(err, domain.ErrNotConfigured):
		return fmt.Errorf("%w\nadd the client registration to ~/.wkyt/config.toml or the environment", err)
	case errors.Is(err, domain.ErrKeyUnavailable):
		return fmt.Errorf("%w\ncheck that the OS keyring is unlocked", err)
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return fmt.Errorf("%w\nwait for the running sync to finish", err)
	default:
		return err
	}
}
