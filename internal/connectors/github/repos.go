package github

import (
	"encoding/json"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/wkyt-app/wkyt/internal/core/domain"
)

// keepRepo applies the archived and fork filters.
func keepRepo(r *gh.Repository, cfg Config) bool {
	if r.GetArchived() && !cfg.IncludeArchived {
		return false
	}
	if r.GetFork() && !cfg.IncludeForks {
		return false
	}
	return !r.GetDisabled()
}

// repoToRaw serialises a repository as a record keyed by its full name.
func repoToRaw(r *gh.Repository) (*domain.RawRecord, error) {
	if r.GetFullName() == "" {
		return nil, fmt.Errorf("%w: repository %d without full name", domain.ErrMalformedResponse, r.GetID())
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode repository %s: %w", r.GetFullName(), err)
	}
	return &domain.RawRecord{
		SourceID:   r.GetFullName(),
		Kind:       domain.RecordKindOther,
		Payload:    payload,
		ModifiedAt: r.GetUpdatedAt().Time,
	}, nil
}

// splitFullName splits "owner/name".
func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: repository %q is not owner/name", domain.ErrInvalidInput, fullName)
	}
	return owner, name, nil
}
