package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncCursor_Lifecycle(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := SyncCursor{Provider: ProviderGoogle, AccountID: "alice"}
	assert.False(t, c.InProgress())

	c = c.Begin(t0)
	assert.True(t, c.InProgress())
	assert.Equal(t, t0, c.PassStartedAt)

	c = c.Advance("page-2")
	assert.Equal(t, "page-2", c.PageToken)

	// Resuming keeps the original pass start and position.
	resumed := c.Begin(t0.Add(time.Hour))
	assert.Equal(t, t0, resumed.PassStartedAt)
	assert.Equal(t, "page-2", resumed.PageToken)

	c = c.Complete()
	assert.False(t, c.InProgress())
	assert.Empty(t, c.PageToken)
	assert.Equal(t, t0, c.LastSyncedAt)
}

func TestSyncReport_RecordsProcessed(t *testing.T) {
	r := SyncReport{RecordsAdded: 2, RecordsUpdated: 1, RecordsUnchanged: 3, RecordsFailed: 1}
	assert.Equal(t, 7, r.RecordsProcessed())
}
