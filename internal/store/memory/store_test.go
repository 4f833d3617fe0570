package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/store"
)

func TestUpsertIsIdempotentOnJobID(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	t0 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return t0 })

	n, err := s.Upsert(ctx, []listing.Listing{
		{JobID: "A1", JobName: "Backend Engineer", CustName: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t1 := t0.Add(48 * time.Hour)
	s.SetNowFunc(func() time.Time { return t1 })

	n, err = s.Upsert(ctx, []listing.Listing{
		{JobID: "A1", JobName: "Senior Backend Engineer", CustName: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	rows, err := s.Search(ctx, store.Filter{Keyword: "Senior"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Senior Backend Engineer", rows[0].JobName)
	assert.Equal(t, t0, rows[0].CreatedAt, "created_at must survive the update")
	assert.Equal(t, t1, rows[0].UpdatedAt)
}

func TestUpsertSkipsRecordsWithoutJobID(t *testing.T) {
	t.Parallel()

	s := New()
	n, err := s.Upsert(context.Background(), []listing.Listing{
		{JobID: "", JobName: "ghost"},
		{JobID: "ok1", JobName: "real"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchFiltersCombineWithAnd(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_, err := s.Upsert(ctx, []listing.Listing{
		{JobID: "B1", JobName: "Backend Engineer", CustName: "Globex"},
		{JobID: "B2", JobName: "Backend Engineer", CustName: "Initech"},
		{JobID: "B3", JobName: "Designer", CustName: "Globex"},
	})
	require.NoError(t, err)

	rows, err := s.Search(ctx, store.Filter{Company: "Globex"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.Search(ctx, store.Filter{Keyword: "backend", Company: "globex"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B1", rows[0].JobID)

	rows, err = s.Search(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSearchOrdersNewestFirstWithWindow(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		now := base.Add(time.Duration(i) * time.Hour)
		s.SetNowFunc(func() time.Time { return now })
		_, err := s.Upsert(ctx, []listing.Listing{{JobID: id, JobName: "Engineer"}})
		require.NoError(t, err)
	}

	rows, err := s.Search(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "new", rows[0].JobID)
	assert.Equal(t, "old", rows[2].JobID)

	rows, err = s.Search(ctx, store.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "mid", rows[0].JobID)
}

func TestPurgeOlderThanDeletesExactlyStaleRows(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s.SetNowFunc(func() time.Time { return now.AddDate(0, 0, -40) })
	_, err := s.Upsert(ctx, []listing.Listing{{JobID: "stale", JobName: "Old"}})
	require.NoError(t, err)

	s.SetNowFunc(func() time.Time { return now })
	_, err = s.Upsert(ctx, []listing.Listing{{JobID: "fresh", JobName: "New"}})
	require.NoError(t, err)

	deleted, err := s.PurgeOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// A second purge with no inserts in between removes nothing.
	deleted, err = s.PurgeOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestRecentReturnsOnlyFreshRows(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s.SetNowFunc(func() time.Time { return now.AddDate(0, 0, -10) })
	_, err := s.Upsert(ctx, []listing.Listing{{JobID: "older", JobName: "A"}})
	require.NoError(t, err)

	s.SetNowFunc(func() time.Time { return now.Add(-time.Hour) })
	_, err = s.Upsert(ctx, []listing.Listing{{JobID: "today", JobName: "B"}})
	require.NoError(t, err)

	s.SetNowFunc(func() time.Time { return now })
	rows, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "today", rows[0].JobID)
}
