// Package retry runs provider API calls with bounded exponential backoff
// and the single forced token refresh allowed after a 401.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Class is how a failed call should be handled.
type Class int

const (
	// Permanent errors are returned immediately.
	Permanent Class = iota
	// Transient errors (timeouts, 5xx, 429) are retried with backoff.
	Transient
	// Unauthorized errors trigger one forced token refresh.
	Unauthorized
)

// Policy configures Do.
type Policy struct {
	// MaxRetries bounds retries of transient failures.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay.
	MaxInterval time.Duration
	// Classify maps an error to its Class.
	Classify func(error) Class
}

// DefaultPolicy retries transient failures three times starting at 500ms.
func DefaultPolicy(classify func(error) Class) Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Classify:        classify,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do runs call until it succeeds, fails permanently or exhausts the policy.
// A 401 forces exactly one token refresh and an immediate retry; a second
// 401, or transient failures beyond MaxRetries, return domain.ErrAdapter.
func Do(ctx context.Context, tokens driven.TokenSource, policy Policy, call func(ctx context.Context) error) error {
	classify := policy.Classify
	if classify == nil {
		classify = func(error) Class { return Permanent }
	}
	refreshed := false

	attempt := func() error {
		err := call(ctx)
		if err != nil && classify(err) == Unauthorized && !refreshed {
			refreshed = true
			if _, rerr := tokens.ForceRefresh(ctx); rerr != nil {
				return backoff.Permanent(rerr)
			}
			err = call(ctx)
		}
		if err == nil {
			return nil
		}

		switch classify(err) {
		case Unauthorized:
			return backoff.Permanent(fmt.Errorf("%w: unauthorized after token refresh: %w", domain.ErrAdapter, err))
		case Transient:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(attempt, policy.backOff(ctx))
	if err != nil && classify(err) == Transient {
		return fmt.Errorf("%w: retries exhausted: %w", domain.ErrAdapter, err)
	}
	return err
}
