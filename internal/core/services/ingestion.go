package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
	"github.com/wkyt-app/wkyt/internal/keylock"
	"github.com/wkyt-app/wkyt/internal/logger"
)

var syncLog = logger.Named("sync")

// TokenSources hands out token sources bound to one account.
type TokenSources interface {
	TokenSource(provider domain.Provider, accountID string) driven.TokenSource
}

// Ensure OAuthClient can feed the ingestion engine.
var _ TokenSources = (*OAuthClient)(nil)

type ingestOutcome int

const (
	outcomeUnchanged ingestOutcome = iota
	outcomeAdded
	outcomeUpdated
)

// IngestionEngine pulls records from provider adapters into the record store.
// A pass resumes from the last committed page after a crash.
type IngestionEngine struct {
	factory driven.AdapterFactory
	tokens  TokenSources
	records driven.RecordStore
	cursors driven.CursorStore
	secrets driven.SecretStore

	inflight *keylock.Map
	now      func() time.Time
}

// NewIngestionEngine creates an ingestion engine.
func NewIngestionEngine(
	factory driven.AdapterFactory,
	tokens TokenSources,
	records driven.RecordStore,
	cursors driven.CursorStore,
	secrets driven.SecretStore,
) *IngestionEngine {
	return &IngestionEngine{
		factory:  factory,
		tokens:   tokens,
		records:  records,
		cursors:  cursors,
		secrets:  secrets,
		inflight: keylock.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sync runs one ingestion pass for an account. On a page failure the
// partial report is returned together with an error wrapping
// domain.ErrPageFetchFailed; the cursor stays at the last committed page.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (e *IngestionEngine) Sync(ctx context.Context, provider domain.Provider, accountID string) (*domain.SyncReport, error) {
	key := domain.AccountKey{Provider: provider, AccountID: accountID}
	release, ok := e.inflight.TryLock(key.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInProgress, key)
	}
	defer release()

	// 1. Create adapter bound to the account's tokens
	if e.factory == nil || !e.factory.Supports(provider) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAdapterUnavailable, provider)
	}
	adapter, err := e.factory.Create(provider, e.tokens.TokenSource(provider, accountID))
	if err != nil {
		return nil, fmt.Errorf("create adapter: %w", err)
	}

	// 2. Prove the token works before touching any state
	if err := adapter.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", key, err)
	}

	// 3. Load or start the cursor
	cursor, err := e.loadCursor(ctx, key)
	if err != nil {
		return nil, err
	}
	resumed := cursor.InProgress()
	cursor = cursor.Begin(e.now())
	if err := e.cursors.Save(ctx, cursor); err != nil {
		return nil, fmt.Errorf("save cursor: %w", err)
	}

	report := &domain.SyncReport{
		Provider:  provider,
		AccountID: accountID,
		StartedAt: e.now(),
	}
	if resumed {
		syncLog.Info("resuming %s at page %q", key, cursor.PageToken)
	} else {
		syncLog.Debug("starting pass for %s", key)
	}

	// 4. Page through the provider, committing the cursor after each page
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := adapter.ListRecords(ctx, cursor)
		if err != nil {
			syncLog.Warn("page %q for %s failed: %v", cursor.PageToken, key, err)
			return report, fmt.Errorf("%w: %w", domain.ErrPageFetchFailed, err)
		}

		for _, raw := range page.Records {
			outcome, err := e.ingest(ctx, provider, raw)
			if err != nil {
				syncLog.Warn("record %s/%s: %v", provider, raw.SourceID, err)
				report.RecordsFailed++
				continue
			}
			switch outcome {
			case outcomeAdded:
				report.RecordsAdded++
			case outcomeUpdated:
				report.RecordsUpdated++
			default:
				report.RecordsUnchanged++
			}
		}
		for _, failure := range page.Failures {
			syncLog.Warn("record %s/%s: %v", provider, failure.SourceID, failure.Err)
			report.RecordsFailed++
		}
		report.Pages++

		if page.NextPageToken == "" {
			cursor = cursor.Complete()
			if err := e.cursors.Save(ctx, cursor); err != nil {
				return report, fmt.Errorf("save cursor: %w", err)
			}
			break
		}
		if page.NextPageToken == cursor.PageToken {
			return report, fmt.Errorf("%w: %w: page token %q repeated",
				domain.ErrPageFetchFailed, domain.ErrMalformedResponse, page.NextPageToken)
		}

		cursor = cursor.Advance(page.NextPageToken)
		if err := e.cursors.Save(ctx, cursor); err != nil {
			return report, fmt.Errorf("save cursor: %w", err)
		}
	}

	report.CompletedAt = e.now()
	syncLog.Info("%s: %d added, %d updated, %d unchanged, %d failed over %d pages",
		key, report.RecordsAdded, report.RecordsUpdated, report.RecordsUnchanged, report.RecordsFailed, report.Pages)
	return report, nil
}

func (e *IngestionEngine) loadCursor(ctx context.Context, key domain.AccountKey) (domain.SyncCursor, error) {
	cursor, err := e.cursors.Get(ctx, key.Provider, key.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SyncCursor{Provider: key.Provider, AccountID: key.AccountID}, nil
	}
	if err != nil {
		return domain.SyncCursor{}, fmt.Errorf("load cursor: %w", err)
	}
	return *cursor, nil
}

// ingest writes raw only when it is new or its content changed.
func (e *IngestionEngine) ingest(ctx context.Context, provider domain.Provider, raw domain.RawRecord) (ingestOutcome, error) {
	if raw.SourceID == "" {
		return outcomeUnchanged, fmt.Errorf("%w: record without source id", domain.ErrMalformedResponse)
	}

	hash := domain.ContentHash(raw.Payload)
	kind := raw.Kind
	if kind == "" {
		kind = domain.RecordKindOther
	}
	now := e.now()

	existing, err := e.records.Header(ctx, provider, raw.SourceID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec := domain.Record{
			RecordHeader: domain.RecordHeader{
				Provider:    provider,
				SourceID:    raw.SourceID,
				Kind:        kind,
				ContentHash: hash,
				IngestedAt:  now,
				UpdatedAt:   now,
			},
			Payload: raw.Payload,
		}
		if err := e.records.Upsert(ctx, rec); err != nil {
			return outcomeUnchanged, fmt.Errorf("store record: %w", err)
		}
		return outcomeAdded, nil
	case err != nil:
		return outcomeUnchanged, fmt.Errorf("read record header: %w", err)
	case existing.ContentHash == hash && existing.Kind == kind:
		return outcomeUnchanged, nil
	}

	rec := domain.Record{
		RecordHeader: domain.RecordHeader{
			Provider:    provider,
			SourceID:    raw.SourceID,
			Kind:        kind,
			ContentHash: hash,
			IngestedAt:  existing.IngestedAt,
			UpdatedAt:   now,
		},
		Payload: raw.Payload,
	}
	if err := e.records.Upsert(ctx, rec); err != nil {
		return outcomeUnchanged, fmt.Errorf("store record: %w", err)
	}
	return outcomeUpdated, nil
}

// SyncAll syncs every stored account. Providers run concurrently; the
// accounts of one provider run one after another. Failures do not stop
// other accounts and are joined into the returned error.
func (e *IngestionEngine) SyncAll(ctx context.Context) ([]domain.SyncReport, error) {
	keys, err := e.secrets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	byProvider := make(map[domain.Provider][]string)
	for _, k := range keys {
		byProvider[k.Provider] = append(byProvider[k.Provider], k.AccountID)
	}

	var (
		mu      sync.Mutex
		reports []domain.SyncReport
		errs    []error
		g       errgroup.Group
	)
	for provider, accounts := range byProvider {
		g.Go(func() error {
			for _, accountID := range accounts {
				report, err := e.Sync(ctx, provider, accountID)
				mu.Lock()
				if report != nil && err == nil {
					reports = append(reports, *report)
				}
				if err != nil {
					errs = append(errs, fmt.Errorf("%s/%s: %w", provider, accountID, err))
				}
				mu.Unlock()
				if ctx.Err() != nil {
					return nil
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Provider != reports[j].Provider {
			return reports[i].Provider < reports[j].Provider
		}
		return reports[i].AccountID < reports[j].AccountID
	})
	return reports, errors.Join(errs...)
}
