package domain

import "time"

// SyncCursor is the resumable ingestion position for one account.
//
// While a pass runs PassStartedAt is set and PageToken names the next page to
// fetch. A completed pass clears both and moves LastSyncedAt to the start of
// that pass, so the next pass lists only what changed since.
type SyncCursor struct {
	Provider      Provider
	AccountID     string
	PageToken     string
	PassStartedAt time.Time
	LastSyncedAt  time.Time
}

// InProgress reports whether a pass was started and not completed.
func (c SyncCursor) InProgress() bool {
	return !c.PassStartedAt.IsZero()
}

// Begin starts a new pass at now unless one is already in progress.
func (c SyncCursor) Begin(now time.Time) SyncCursor {
	if c.InProgress() {
		return c
	}
	c.PassStartedAt = now
	c.PageToken = ""
	return c
}

// Advance records that the page before token has been committed.
func (c SyncCursor) Advance(token string) SyncCursor {
	c.PageToken = token
	return c
}

// Complete closes the current pass.
func (c SyncCursor) Complete() SyncCursor {
	c.LastSyncedAt = c.PassStartedAt
	c.PassStartedAt = time.Time{}
	c.PageToken = ""
	return c
}

// SyncReport summarises one ingestion pass.
type SyncReport struct {
	Provider         Provider
	AccountID        string
	RecordsAdded     int
	RecordsUpdated   int
	RecordsUnchanged int
	RecordsFailed    int
	Pages            int
	StartedAt        time.Time
	CompletedAt      time.Time
}

// RecordsProcessed returns the number of records the pass looked at.
func (r SyncReport) RecordsProcessed() int {
	return r.RecordsAdded + r.RecordsUpdated + r.RecordsUnchanged + r.RecordsFailed
}
