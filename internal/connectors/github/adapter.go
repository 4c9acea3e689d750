package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v80/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/wkyt-app/wkyt/internal/connectors/retry"
	"github.com/wkyt-app/wkyt/internal/core/domain"
	"github.com/wkyt-app/wkyt/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.ProviderAdapter = (*Adapter)(nil)

// Adapter lists and fetches repositories for one GitHub account.
type Adapter struct {
	tokens  driven.TokenSource
	cfg     Config
	cache   httpcache.Cache
	limiter *RateLimiter
	policy  retry.Policy
}

// New creates a GitHub adapter.
func New(tokens driven.TokenSource, cfg Config) *Adapter {
	return &Adapter{
		tokens:  tokens,
		cfg:     cfg.withDefaults(),
		cache:   httpcache.NewMemoryCache(),
		limiter: NewRateLimiter(ProactiveRate, 5),
		policy:  retry.DefaultPolicy(Classify),
	}
}

// Provider returns domain.ProviderGitHub.
func (a *Adapter) Provider() domain.Provider { return domain.ProviderGitHub }

// client builds the transport stack for calls made under ctx. The cache is
// shared by every call of the adapter.
func (a *Adapter) client(ctx context.Context) (*gh.Client, error) {
	base := a.cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	cacheTransport := httpcache.NewTransport(a.cache)
	cacheTransport.Transport = &oauth2.Transport{
		Source: retry.NewTokenSource(ctx, a.tokens),
		Base:   base,
	}
	client := gh.NewClient(github_ratelimit.NewClient(cacheTransport))

	u, err := a.cfg.baseURL()
	if err != nil {
		return nil, err
	}
	if u != nil {
		client.BaseURL = u
	}
	return client, nil
}

// do rate-limits and retries one API call.
func (a *Adapter) do(ctx context.Context, call func(ctx context.Context) (*gh.Response, error)) error {
	return retry.Do(ctx, a.tokens, a.policy, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := call(ctx)
		a.limiter.Update(resp)
		return err
	})
}

// Authenticate reads the authenticated user.
func (a *Adapter) Authenticate(ctx context.Context) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	return a.do(ctx, func(ctx context.Context) (*gh.Response, error) {
		_, resp, err := client.Users.Get(ctx, "")
		return resp, err
	})
}

// ListRecords lists one page of repositories, most recently updated first.
func (a *Adapter) ListRecords(ctx context.Context, cursor domain.SyncCursor) (*domain.Page, error) {
	pageNum := 1
	if cursor.PageToken != "" {
		n, err := strconv.Atoi(cursor.PageToken)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %w: %q", domain.ErrMalformedResponse, ErrInvalidPageToken, cursor.PageToken)
		}
		pageNum = n
	}

	client, err := a.client(ctx)
	if err != nil {
		return nil, err
	}

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{Page: pageNum, PerPage: a.cfg.PageSize},
	}

	var (
		repos []*gh.Repository
		next  int
	)
	err = a.do(ctx, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		repos, resp, err = client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if resp != nil {
			next = resp.NextPage
		}
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("list repositories page %d: %w", pageNum, err)
	}

	page := &domain.Page{}
	reachedOld := false
	for _, r := range repos {
		if !cursor.LastSyncedAt.IsZero() && r.GetUpdatedAt().Before(cursor.LastSyncedAt) {
			reachedOld = true
			break
		}
		if !keepRepo(r, a.cfg) {
			continue
		}
		rec, err := repoToRaw(r)
		if err != nil {
			page.Failures = append(page.Failures, domain.RecordFailure{SourceID: r.GetFullName(), Err: err})
			continue
		}
		page.Records = append(page.Records, *rec)
	}
	if next > 0 && !reachedOld {
		page.NextPageToken = strconv.Itoa(next)
	}
	return page, nil
}

// FetchRecord fetches one repository by "owner/name".
func (a *Adapter) FetchRecord(ctx context.Context, sourceID string) (*domain.RawRecord, error) {
	owner, name, err := splitFullName(sourceID)
	if err != nil {
		return nil, err
	}
	client, err := a.client(ctx)
	if err != nil {
		return nil, err
	}

	var repo *gh.Repository
	err = a.do(ctx, func(ctx context.Context) (*gh.Response, error) {
		var resp *gh.Response
		var err error
		repo, resp, err = client.Repositories.Get(ctx, owner, name)
		return resp, err
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrRepoNotFound, sourceID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get repository %s: %w", sourceID, err)
	}
	return repoToRaw(repo)
}

