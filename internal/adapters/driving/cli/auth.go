package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wkyt-app/wkyt/internal/adapters/driving/oauth"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driving"
)

var (
	authManual    bool
	authNoBrowser bool
)

// openBrowser is replaced in tests.
var openBrowser = oauth.OpenBrowser

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect and disconnect provider accounts",
	Long: `Sign in to a provider with OAuth and store the resulting credential
encrypted in the vault.

Examples:
  # Sign in with the loopback redirect and the default browser
  wkyt auth login google

  # Paste the code or the redirect URL by hand
  wkyt auth login github --manual

  # Remove an account's credential and revoke it at the provider
  wkyt auth revoke google alice@example.com`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Sign in to a provider account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogin,
}

var authRevokeCmd = &cobra.Command{
	Use:   "revoke <provider> <account>",
	Short: "Revoke and delete an account's credential",
	Long: `Revokes the account's token at the provider when supported and deletes
the stored credential and sync cursor. Ingested records are kept.`,
	Args: cobra.ExactArgs(2),
	RunE: runAuthRevoke,
}

func init() {
	authLoginCmd.Flags().BoolVar(&authManual, "manual", false, "paste the authorization code instead of running a local callback server")
	authLoginCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "print the authorization URL without opening a browser")
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRevokeCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// 1. Start the callback server first so the redirect can't race it
	var server *oauth.CallbackServer
	if !authManual {
		server, err = oauth.NewCallbackServer(redirectURI(provider))
		if err != nil {
			return fmt.Errorf("%w (use --manual for non-loopback redirect URIs)", err)
		}
		if err := server.Start(); err != nil {
			return err
		}
		defer func() { _ = server.Stop() }()
	}

	// 2. Build the authorization URL
	req, err := svc.InitiateAuth(ctx, provider)
	if err != nil {
		return hint(fmt.Errorf("initiate auth: %w", err))
	}

	cmd.Println(titleStyle.Render("Authorize wkyt to read your " + string(provider) + " account"))
	cmd.Println(req.AuthorizationURL)
	if !authNoBrowser {
		if err := openBrowser(req.AuthorizationURL); err != nil {
			cmd.Println(mutedStyle.Render("Could not open a browser; open the URL above manually."))
		}
	}

	// 3. Collect the code
	code, state, err := collectCode(ctx, cmd, server, req)
	if err != nil {
		return err
	}

	// 4. Exchange it
	info, err := svc.CompleteAuth(ctx, provider, code, state)
	if err != nil {
		return hint(fmt.Errorf("complete auth: %w", err))
	}

	cmd.Println(successStyle.Render(fmt.Sprintf("Signed in as %s/%s", info.Provider, info.AccountID)))
	cmd.Println(mutedStyle.Render("Token valid until " + info.ExpiresAt.Local().Format(time.RFC1123)))
	return nil
}

// collectCode waits for the redirect or reads a pasted code or redirect URL.
func collectCode(ctx context.Context, cmd *cobra.Command, server *oauth.CallbackServer, req *driving.AuthRequest) (code, state string, err error) {
	if server != nil {
		cmd.Println(mutedStyle.Render("Waiting for the browser redirect..."))
		waitCtx, cancel := context.WithDeadline(ctx, req.ExpiresAt)
		defer cancel()
		cb, err := server.Wait(waitCtx)
		if err != nil {
			return "", "", err
		}
		return cb.Code, cb.State, nil
	}

	cmd.Print("Paste the authorization code or the full redirect URL: ")
	input, err := readSecret(cmd.InOrStdin())
	cmd.Println()
	if err != nil {
		return "", "", fmt.Errorf("read code: %w", err)
	}
	return parseCodeInput(input, req.State)
}

// readSecret reads one line, without echo when in is a terminal.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// parseCodeInput accepts a bare code, or a redirect URL carrying code and
// state. A bare code is paired with the state of the pending request.
func parseCodeInput(input, pendingState string) (code, state string, err error) {
	if input == "" {
		return "", "", fmt.Errorf("%w: empty authorization code", domain.ErrInvalidInput)
	}
	if !strings.Contains(input, "://") {
		return input, pendingState, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse redirect url: %w", domain.ErrInvalidInput, err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", "", fmt.Errorf("%w: %s", oauth.ErrProviderDenied, e)
	}
	if q.Get("code") == "" {
		return "", "", fmt.Errorf("%w: redirect url has no code", domain.ErrInvalidInput)
	}
	return q.Get("code"), q.Get("state"), nil
}

func runAuthRevoke(cmd *cobra.Command, args []string) error {
	svc, err := requireVault()
	if err != nil {
		return err
	}
	provider, err := domain.ParseProvider(args[0])
	if err != nil {
		return err
	}

	if err := svc.Revoke(cmd.Context(), provider, args[1]); err != nil {
		return hint(fmt.Errorf("revoke: %w", err))
	}
	cmd.Println(successStyle.Render(fmt.Sprintf("Revoked %s/%s", provider, args[1])))
	return nil
}
