// Package oauth provides the loopback OAuth callback server and browser utilities.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// ErrProviderDenied is returned when the provider redirects with an error.
var ErrProviderDenied = errors.New("authorization denied by provider")

// Callback is the query of a completed redirect.
type Callback struct {
	Code  string
	State string
}

// CallbackServer receives the authorization redirect on the loopback address
// named by the redirect URI. The state is checked later by the caller.
type CallbackServer struct {
	mu       sync.Mutex
	addr     string
	path     string
	results  chan Callback
	errChan  chan error
	server   *http.Server
	listener net.Listener
}

// NewCallbackServer creates a server for redirectURI, which must be an
// http URL on a loopback host.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect uri %q: loopback callback needs http", redirectURI)
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, fmt.Errorf("redirect uri %q: host is not a loopback address", redirectURI)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &CallbackServer{
		addr:    net.JoinHostPort(host, u.Port()),
		path:    path,
		results: make(chan Callback, 1),
		errChan: make(chan error, 1),
	}, nil
}

// Start listens and serves in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := mux.NewRouter()
	r.HandleFunc(s.path, s.handleCallback).Methods(http.MethodGet)

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.sendErr(err)
		}
	}()
	return nil
}

func (s *CallbackServer) sendErr(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

// handleCallback processes the OAuth callback request.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := q.Get("error"); errParam != "" {
		s.sendErr(fmt.Errorf("%w: %s: %s", ErrProviderDenied, errParam, q.Get("error_description")))
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", errParam))
		return
	}

	code := q.Get("code")
	if code == "" {
		s.sendErr(errors.New("no authorization code received"))
		_, _ = fmt.Fprint(w, resultHTML("Authorization failed", "no code received"))
		return
	}

	select {
	case s.results <- Callback{Code: code, State: q.Get("state")}:
	default:
	}
	_, _ = fmt.Fprint(w, resultHTML("Authorization received", "You can close this window and return to the terminal."))
}

// Wait blocks until a redirect arrives or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context) (Callback, error) {
	select {
	case cb := <-s.results:
		return cb, nil
	case err := <-s.errChan:
		return Callback{}, err
	case <-ctx.Done():
		return Callback{}, fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts down the callback server.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the listening address, resolved once Start succeeded.
func (s *CallbackServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func resultHTML(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>wkyt</title>
    <style>
        body { font-family: sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
        h1 { font-size: 22px; margin: 0 0 8px 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div><h1>%s</h1><p>%s</p></div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
