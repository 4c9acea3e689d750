package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

type githubMockTokens struct {
	mu      sync.Mutex
	token   string
	forced  int
	onForce string
}

func (m *githubMockTokens) Token(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *githubMockTokens) ForceRefresh(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced++
	if m.onForce != "" {
		m.token = m.onForce
	}
	return m.token, nil
}

type repoFixture struct {
	fullName string
	updated  time.Time
	archived bool
}

// fakeGitHub serves /user, /user/repos and /repos/{owner}/{name}.
type fakeGitHub struct {
	server      *httptest.Server
	token       string
	repos       []repoFixture
	perPage     int
	failures    map[string]int
	failStatus  int
	etag        string
	ifNoneMatch []string
	mu          sync.Mutex
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{token: "tok", perPage: 2, failures: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !f.check(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"login": "octocat"})
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if !f.check(w, r) {
			return
		}
		f.mu.Lock()
		f.ifNoneMatch = append(f.ifNoneMatch, r.Header.Get("If-None-Match"))
		f.mu.Unlock()
		if f.etag != "" {
			if r.Header.Get("If-None-Match") == f.etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", f.etag)
		}

		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			_, _ = fmt.Sscanf(p, "%d", &page)
		}
		start := (page - 1) * f.perPage
		end := min(start+f.perPage, len(f.repos))
		if end < len(f.repos) {
			w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=%d>; rel="next"`, f.server.URL, page+1))
		}
		out := make([]map[string]any, 0, end-start)
		for _, r := range f.repos[start:end] {
			out = append(out, repoJSON(r))
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/repos/{owner}/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !f.check(w, r) {
			return
		}
		full := r.PathValue("owner") + "/" + r.PathValue("name")
		for _, repo := range f.repos {
			if repo.fullName == full {
				_ = json.NewEncoder(w).Encode(repoJSON(repo))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) check(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.failures[r.URL.Path]; n > 0 {
		f.failures[r.URL.Path] = n - 1
		w.WriteHeader(f.failStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
		return false
	}
	return true
}

func repoJSON(r repoFixture) map[string]any {
	return map[string]any{
		"id":         len(r.fullName),
		"full_name":  r.fullName,
		"archived":   r.archived,
		"updated_at": r.updated.Format(time.RFC3339),
	}
}

func newTestAdapter(t *testing.T, f *fakeGitHub, tokens *githubMockTokens) *Adapter {
	t.Helper()
	a := New(tokens, Config{BaseURL: f.server.URL, PageSize: 2, IncludeForks: true, IncludeArchived: true})
	a.limiter = NewRateLimiter(1000, 100)
	a.policy.InitialInterval = time.Millisecond
	a.policy.MaxInterval = 5 * time.Millisecond
	return a
}

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func threeRepos() []repoFixture {
	return []repoFixture{
		{fullName: "octocat/alpha", updated: day.Add(3 * time.Hour)},
		{fullName: "octocat/beta", updated: day.Add(2 * time.Hour)},
		{fullName: "octocat/gamma", updated: day.Add(time.Hour)},
	}
}

func TestAdapter_Authenticate(t *testing.T) {
	f := newFakeGitHub(t)
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	require.NoError(t, a.Authenticate(context.Background()))
	assert.Equal(t, domain.ProviderGitHub, a.Provider())
}

func TestAdapter_ListRecords_Pages(t *testing.T) {
	f := newFakeGitHub(t)
	f.repos = threeRepos()
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	page, err := a.ListRecords(context.Background(), domain.SyncCursor{})
	require.NoError(t, err)
	assert.Equal(t, "2", page.NextPageToken)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "octocat/alpha", page.Records[0].SourceID)
	assert.Equal(t, domain.RecordKindOther, page.Records[0].Kind)
	assert.Equal(t, day.Add(3*time.Hour), page.Records[0].ModifiedAt.UTC())

	var repo gh.Repository
	require.NoError(t, json.Unmarshal(page.Records[0].Payload, &repo))
	assert.Equal(t, "octocat/alpha", repo.GetFullName())

	page, err = a.ListRecords(context.Background(), domain.SyncCursor{PageToken: "2"})
	require.NoError(t, err)
	assert.Empty(t, page.NextPageToken)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "octocat/gamma", page.Records[0].SourceID)
}

func TestAdapter_ListRecords_StopsAtUnchanged(t *testing.T) {
	f := newFakeGitHub(t)
	f.repos = threeRepos()
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	page, err := a.ListRecords(context.Background(), domain.SyncCursor{LastSyncedAt: day.Add(150 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "octocat/alpha", page.Records[0].SourceID)
	assert.Empty(t, page.NextPageToken)
}

func TestAdapter_ListRecords_FiltersArchived(t *testing.T) {
	f := newFakeGitHub(t)
	f.repos = []repoFixture{
		{fullName: "octocat/old", updated: day, archived: true},
		{fullName: "octocat/new", updated: day},
	}
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})
	a.cfg.IncludeArchived = false

	page, err := a.ListRecords(context.Background(), domain.SyncCursor{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "octocat/new", page.Records[0].SourceID)
}

func TestAdapter_ListRecords_InvalidPageToken(t *testing.T) {
	f := newFakeGitHub(t)
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	_, err := a.ListRecords(context.Background(), domain.SyncCursor{PageToken: "abc"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestAdapter_RevalidatesWithETag(t *testing.T) {
	f := newFakeGitHub(t)
	f.repos = threeRepos()[:1]
	f.etag = `"v1"`
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	first, err := a.ListRecords(context.Background(), domain.SyncCursor{})
	require.NoError(t, err)
	second, err := a.ListRecords(context.Background(), domain.SyncCursor{})
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	require.Len(t, f.ifNoneMatch, 2)
	assert.Empty(t, f.ifNoneMatch[0])
	assert.Equal(t, `"v1"`, f.ifNoneMatch[1])
}

func TestAdapter_FetchRecord(t *testing.T) {
	f := newFakeGitHub(t)
	f.repos = threeRepos()
	a := newTestAdapter(t, f, &githubMockTokens{token: "tok"})

	rec, err := a.FetchRecord(context.Background(), "octocat/beta")
	require.NoError(t, err)
	assert.Equal(t, "octocat/beta", rec.SourceID)

	_, err = a.FetchRecord(context.Background(), "octocat/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = a.FetchRecord(context.Background(), "no-slash")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdapter_RetryBehaviour(t *testing.T) {
	tests := []struct {
		name       string
		serverTok  string
		tokens     *githubMockTokens
		failures   int
		failStatus int
		wantErr    error
		wantForced int
	}{
		{
			name:       "refreshes once after 401",
			serverTok:  "fresh",
			tokens:     &githubMockTokens{token: "stale", onForce: "fresh"},
			wantForced: 1,
		},
		{
			name:       "second 401 fails",
			serverTok:  "never",
			tokens:     &githubMockTokens{token: "stale"},
			wantErr:    domain.ErrAdapter,
			wantForced: 1,
		},
		{
			name:       "transient failures retried",
			serverTok:  "tok",
			tokens:     &githubMockTokens{token: "tok"},
			failures:   2,
			failStatus: http.StatusBadGateway,
		},
		{
			name:       "transient retries exhausted",
			serverTok:  "tok",
			tokens:     &githubMockTokens{token: "tok"},
			failures:   10,
			failStatus: http.StatusInternalServerError,
			wantErr:    domain.ErrAdapter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGitHub(t)
			f.token = tt.serverTok
			f.failures["/user"] = tt.failures
			f.failStatus = tt.failStatus
			a := newTestAdapter(t, f, tt.tokens)

			err := a.Authenticate(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantForced, tt.tokens.forced)
		})
	}
}

func TestOAuthHandler_AccountID(t *testing.T) {
	f := newFakeGitHub(t)
	h := NewOAuthHandler()

	login, err := h.AccountID(context.Background(), f.server.Client(), f.server.URL+"/user", "tok")
	require.NoError(t, err)
	assert.Equal(t, "octocat", login)

	_, err = h.AccountID(context.Background(), f.server.Client(), f.server.URL+"/user", "bad")
	assert.Error(t, err)

	assert.Empty(t, h.DefaultEndpoints().RevokeURL)
	assert.Equal(t, []string{"repo", "read:user"}, h.DefaultEndpoints().Scopes)
}

func TestSplitFullName(t *testing.T) {
	owner, name, err := splitFullName("octocat/hello")
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello", name)

	for _, bad := range []string{"", "octocat", "/x", "x/", "a/b/c"} {
		_, _, err := splitFullName(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}
