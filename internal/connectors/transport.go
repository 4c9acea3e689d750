package connectors

import (
	"context"
	"io"
	"net/http"
	"time"
)

// timeoutRoundTripper bounds every request by a fixed timeout. Unlike
// http.Client.Timeout it also applies to clients built by API libraries
// that only accept a RoundTripper.
type timeoutRoundTripper struct {
	next    http.RoundTripper
	timeout time.Duration
}

func timeoutTransport(next http.RoundTripper, timeout time.Duration) http.RoundTripper {
	if timeout <= 0 {
		return next
	}
	return &timeoutRoundTripper{next: next, timeout: timeout}
}

func (t *timeoutRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
