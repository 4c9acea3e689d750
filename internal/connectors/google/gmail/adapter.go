// Package gmail reads Gmail messages into the vault.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/wkyt-app/wkyt/internal/connectors/google"
	"github.com/wkyt-app/wkyt/internal/connectors/retry"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.ProviderAdapter = (*Adapter)(nil)

const me = "me"

// Adapter lists and fetches Gmail messages for one account.
type Adapter struct {
	tokens  driven.TokenSource
	cfg     Config
	limiter *google.RateLimiter
	policy  retry.Policy
}

// New creates a Gmail adapter.
func New(tokens driven.TokenSource, cfg Config) *Adapter {
	return &Adapter{
		tokens:  tokens,
		cfg:     cfg.withDefaults(),
		limiter: google.NewRateLimiter(google.GmailRateLimit),
		policy:  retry.DefaultPolicy(google.Classify),
	}
}

// Provider returns domain.ProviderGoogle.
func (a *Adapter) Provider() domain.Provider { return domain.ProviderGoogle }

func (a *Adapter) service(ctx context.Context) (*gmailapi.Service, error) {
	svc, err := google.NewGmailService(ctx, a.tokens, google.ServiceOptions{
		Endpoint:  a.cfg.Endpoint,
		Transport: a.cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// do rate-limits and retries one API call.
func (a *Adapter) do(ctx context.Context, call func(ctx context.Context) error) error {
	return retry.Do(ctx, a.tokens, a.policy, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		err := call(ctx)
		if google.IsRateLimited(err) {
			a.limiter.RecordRateLimitError(retryAfter(err))
		}
		return err
	})
}

// Authenticate reads the mailbox profile.
func (a *Adapter) Authenticate(ctx context.Context) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	return a.do(ctx, func(ctx context.Context) error {
		_, err := svc.Users.GetProfile(me).Context(ctx).Do()
		return err
	})
}

// ListRecords lists one page of message IDs and fetches each message.
// A message that cannot be fetched is reported in Page.Failures.
func (a *Adapter) ListRecords(ctx context.Context, cursor domain.SyncCursor) (*domain.Page, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var resp *gmailapi.ListMessagesResponse
	err = a.do(ctx, func(ctx context.Context) error {
		call := svc.Users.Messages.List(me).
			MaxResults(a.cfg.PageSize).
			IncludeSpamTrash(a.cfg.IncludeSpamTrash).
			Context(ctx)
		if q := buildQuery(a.cfg.Query, cursor.LastSyncedAt); q != "" {
			call = call.Q(q)
		}
		if len(a.cfg.LabelIDs) > 0 {
			call = call.LabelIds(a.cfg.LabelIDs...)
		}
		if cursor.PageToken != "" {
			call = call.PageToken(cursor.PageToken)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &domain.Page{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		rec, err := a.fetch(ctx, svc, m.Id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			page.Failures = append(page.Failures, domain.RecordFailure{SourceID: m.Id, Err: err})
			continue
		}
		page.Records = append(page.Records, *rec)
	}
	return page, nil
}

// FetchRecord fetches one message by ID.
func (a *Adapter) FetchRecord(ctx context.Context, sourceID string) (*domain.RawRecord, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	return a.fetch(ctx, svc, sourceID)
}

func (a *Adapter) fetch(ctx context.Context, svc *gmailapi.Service, id string) (*domain.RawRecord, error) {
	var msg *gmailapi.Message
	err := a.do(ctx, func(ctx context.Context) error {
		var err error
		msg, err = svc.Users.Messages.Get(me, id).Format("raw").Context(ctx).Do()
		return err
	})
	if err != nil {
		if google.IsNotFound(err) {
			return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return messageToRaw(msg)
}

// retryAfter reads the Retry-After header of a 429.
func retryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, perr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if perr != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
